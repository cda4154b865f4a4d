package priority

import (
	"strings"

	"github.com/kursadbilgin/textqueue/internal/domain"
)

const (
	contactType  = "contact"
	tasterPhrase = "market taster"
)

// Classify returns the delivery priority for a record. Contacts always win;
// lead texts that only carry the market taster go last.
func Classify(recipientType, text string) domain.Priority {
	if strings.ToLower(strings.TrimSpace(recipientType)) == contactType {
		return domain.PriorityContact
	}
	if strings.Contains(strings.ToLower(text), tasterPhrase) {
		return domain.PriorityTaster
	}
	return domain.PriorityLead
}
