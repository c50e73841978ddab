package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luzzdev/luzzia/internal/models"
)

func TestExportThread(t *testing.T) {
	svc, _ := newTestService(t, &fakeGenerator{})
	svc.SwitchAgent(testAgent())

	id, err := svc.StartNewChat()
	require.NoError(t, err)

	at := time.Date(2025, 3, 14, 9, 26, 53, 0, time.Local)
	svc.Sessions().Append(id, &models.Message{
		ID: "m1", Role: models.RoleUser, Content: "Primeira pergunta", CreatedAt: at,
	})
	svc.Sessions().Append(id, &models.Message{
		ID: "m2", Role: models.RoleAssistant, AgentName: "Avatar360", Content: "Primeira resposta", CreatedAt: at.Add(time.Second),
	})
	svc.Sessions().Append(id, &models.Message{
		ID: "m3", Role: models.RoleSystem, Content: "Erro da IA: x", CreatedAt: at.Add(2 * time.Second),
	})

	out, err := svc.ExportThread(id)
	require.NoError(t, err)

	blocks := strings.Split(out, TranscriptDivider)
	require.Len(t, blocks, 3)
	assert.Equal(t, "[14/03/2025, 09:26:53] Usuário:\nPrimeira pergunta", blocks[0])
	assert.Equal(t, "[14/03/2025, 09:26:54] Avatar360:\nPrimeira resposta", blocks[1])
	assert.Equal(t, "[14/03/2025, 09:26:55] Sistema:\nErro da IA: x", blocks[2])
}

func TestExportThreadUnknown(t *testing.T) {
	svc, _ := newTestService(t, &fakeGenerator{})
	_, err := svc.ExportThread(NewDraftID())
	assert.ErrorIs(t, err, ErrThreadNotFound)
}

func TestExportThreadEmptyThread(t *testing.T) {
	svc, _ := newTestService(t, &fakeGenerator{})
	svc.SwitchAgent(testAgent())
	id, err := svc.StartNewChat()
	require.NoError(t, err)

	out, err := svc.ExportThread(id)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestTranscriptAuthorFallbacks(t *testing.T) {
	assistant := &models.Message{Role: models.RoleAssistant}
	assert.Equal(t, "Assistente", transcriptAuthor(assistant, ""))
	assert.Equal(t, "Avatar360", transcriptAuthor(assistant, "Avatar360"))

	named := &models.Message{Role: models.RoleAssistant, AgentName: "Headlinerz"}
	assert.Equal(t, "Headlinerz", transcriptAuthor(named, "Avatar360"))
}
