package chat

import (
	"fmt"
	"strings"

	"github.com/luzzdev/luzzia/internal/models"
)

// TranscriptDivider separates message blocks in an exported transcript.
const TranscriptDivider = "\n\n---------------------------------\n\n"

const exportTimeLayout = "02/01/2006, 15:04:05"

// ExportThread renders the thread as a plain-text transcript: one block of
// "[timestamp] Author:\ncontent" per message, joined by TranscriptDivider.
func (s *Service) ExportThread(id ThreadID) (string, error) {
	thread, ok := s.sessions.Thread(id)
	if !ok {
		return "", ErrThreadNotFound
	}

	var agentName string
	if a := s.sessions.ActiveAgent(); a != nil && a.ID == thread.AgentID {
		agentName = a.Name
	}

	blocks := make([]string, 0, len(thread.Messages))
	for _, m := range thread.Messages {
		blocks = append(blocks, fmt.Sprintf("[%s] %s:\n%s",
			m.CreatedAt.Format(exportTimeLayout), transcriptAuthor(m, agentName), m.Content))
	}
	return strings.Join(blocks, TranscriptDivider), nil
}

func transcriptAuthor(m *models.Message, agentName string) string {
	switch m.Role {
	case models.RoleUser:
		return "Usuário"
	case models.RoleSystem:
		return "Sistema"
	default:
		if m.AgentName != "" {
			return m.AgentName
		}
		if agentName != "" {
			return agentName
		}
		return "Assistente"
	}
}
