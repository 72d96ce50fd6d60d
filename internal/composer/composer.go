// Package composer renders the assistant's customer-facing messages from phrase pools.
package composer

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/lexicon"
)

// Source picks phrase variants. *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// Composer builds messages in the ticket's language.
type Composer struct {
	mu        sync.Mutex
	rnd       Source
	signature string
}

// New returns a Composer signing messages as signature.
func New(rnd Source, signature string) *Composer {
	return &Composer{rnd: rnd, signature: signature}
}

// Reply carries everything needed for the first assistant reply on a new ticket.
type Reply struct {
	Language        string
	CustomerName    string
	TicketNumber    string
	Priority        domain.TicketPriority
	PriorityChanged bool
	Negative        bool
	// AssignmentNotice is the matcher's sentence; empty when the ticket stayed unassigned.
	AssignmentNotice string
	KnowledgeText    string
	AfterHours       bool
	HoursStart       int
	HoursEnd         int
	// Signature overrides the composer's default signature when set.
	Signature string
}

// Followup addresses a reminder, warning or closure letter on a waiting ticket.
type Followup struct {
	Language     string
	CustomerName string
	TicketNumber string
	// Signature overrides the composer's default signature when set.
	Signature string
}

// Link is a titled URL.
type Link struct {
	Title string
	URL   string
}

// Compose renders the reply for a freshly triaged ticket.
func (c *Composer) Compose(r Reply) string {
	lang := lexicon.NormalizeLanguage(r.Language)
	parts := []string{
		c.pick(lang, PhraseGreeting, displayName(r.CustomerName, lang)),
		c.pick(lang, PhraseWelcome, r.TicketNumber),
	}
	if r.Negative {
		parts = append(parts, c.pick(lang, PhraseEmpathy))
	}
	switch {
	case r.Priority == domain.TicketPriorityCritical:
		parts = append(parts, c.pick(lang, PhrasePriorityUrgent))
	case r.PriorityChanged:
		parts = append(parts, c.pick(lang, PhrasePriorityRaised))
	}
	if r.AssignmentNotice != "" {
		parts = append(parts, r.AssignmentNotice)
	} else {
		parts = append(parts, c.pick(lang, PhraseUnassigned))
	}
	if r.KnowledgeText != "" {
		parts = append(parts, r.KnowledgeText)
	}
	if r.AfterHours {
		parts = append(parts, c.pick(lang, PhraseAfterHours, r.HoursStart, r.HoursEnd))
	}
	parts = append(parts, c.pick(lang, PhraseClosing), c.sign(r.Signature))
	return strings.Join(parts, "\n\n")
}

// AssignmentNotice describes a department assignment. When the category and department
// labels are lexically similar only the department is mentioned.
func (c *Composer) AssignmentNotice(lang, agentName, categoryLabel, departmentLabel string) string {
	lang = lexicon.NormalizeLanguage(lang)
	assigned := c.pick(lang, PhraseAssigned, agentName)
	if LexicallySimilar(categoryLabel, departmentLabel) {
		return assigned + " " + c.pick(lang, PhraseAssignedDept, departmentLabel)
	}
	return assigned + " " + c.pick(lang, PhraseAssignedBoth, categoryLabel, departmentLabel)
}

// ServiceOfficerNotice describes a fallback assignment to customer care.
func (c *Composer) ServiceOfficerNotice(lang, agentName string) string {
	return c.pick(lexicon.NormalizeLanguage(lang), PhraseServiceOfficer, agentName)
}

// NoServiceOfficer explains that the fallback pool is empty.
func (c *Composer) NoServiceOfficer(lang string) string {
	return c.pick(lexicon.NormalizeLanguage(lang), PhraseNoOfficer)
}

// NoDepartmentAgent explains that a department has no eligible agents.
func (c *Composer) NoDepartmentAgent(lang, departmentLabel string) string {
	return c.pick(lexicon.NormalizeLanguage(lang), PhraseNoDeptAgent, departmentLabel)
}

// KBAutoResponse renders an article excerpt with a link and the confirmation prompt.
func (c *Composer) KBAutoResponse(lang, title, excerpt, url string) string {
	lang = lexicon.NormalizeLanguage(lang)
	return c.pick(lang, PhraseKBAuto, title, excerpt, url) + "\n\n" + c.pick(lang, PhraseKBConfirm)
}

// KBSuggestions renders a bulleted list of articles. Empty input yields an empty string.
func (c *Composer) KBSuggestions(lang string, links []Link) string {
	if len(links) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(c.pick(lexicon.NormalizeLanguage(lang), PhraseKBSuggestions))
	for _, l := range links {
		fmt.Fprintf(&b, "\n- %s: %s", l.Title, l.URL)
	}
	return b.String()
}

// Reminder asks the customer for a reply.
func (c *Composer) Reminder(f Followup) string {
	lang := lexicon.NormalizeLanguage(f.Language)
	return c.letter(lang, f, c.pick(lang, PhraseReminder, f.TicketNumber))
}

// Warning announces the upcoming automatic closure.
func (c *Composer) Warning(f Followup, hoursLeft int) string {
	lang := lexicon.NormalizeLanguage(f.Language)
	return c.letter(lang, f, c.pick(lang, PhraseWarning, f.TicketNumber, hoursLeft))
}

// Closure announces that the ticket was closed for inactivity.
func (c *Composer) Closure(f Followup, days int) string {
	lang := lexicon.NormalizeLanguage(f.Language)
	return c.letter(lang, f, c.pick(lang, PhraseClosure, f.TicketNumber, days))
}

// Escalation renders the subject and body of an internal escalation alert.
func (c *Composer) Escalation(lang, ticketNumber, title string, priority domain.TicketPriority, sentiment domain.TicketSentiment) (string, string) {
	lang = lexicon.NormalizeLanguage(lang)
	subject := c.pick(lang, PhraseEscalationTitle, ticketNumber)
	body := c.pick(lang, PhraseEscalation, ticketNumber, priority, sentiment, title)
	return subject, body
}

func (c *Composer) letter(lang string, f Followup, body string) string {
	return strings.Join([]string{
		c.pick(lang, PhraseGreeting, displayName(f.CustomerName, lang)),
		body,
		c.pick(lang, PhraseClosing),
		c.sign(f.Signature),
	}, "\n\n")
}

func (c *Composer) sign(override string) string {
	if override != "" {
		return override
	}
	return c.signature
}

func (c *Composer) pick(lang string, phrase Phrase, args ...any) string {
	pool := phrases[lang][phrase]
	if len(pool) == 0 {
		pool = phrases[lexicon.LangES][phrase]
	}
	if len(pool) == 0 {
		return ""
	}
	idx := 0
	if len(pool) > 1 && c.rnd != nil {
		c.mu.Lock()
		idx = c.rnd.Intn(len(pool))
		c.mu.Unlock()
	}
	if len(args) == 0 {
		return pool[idx]
	}
	return fmt.Sprintf(pool[idx], args...)
}

// LexicallySimilar reports whether either label contains the other, ignoring case.
func LexicallySimilar(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// OutsideBusinessHours reports whether t falls outside [start, end) hours of the day.
// A window with start >= end is treated as always open.
func OutsideBusinessHours(t time.Time, start, end int) bool {
	if start >= end {
		return false
	}
	h := t.Hour()
	return h < start || h >= end
}

func displayName(name, lang string) string {
	name = strings.TrimSpace(name)
	if name != "" {
		return name
	}
	if lang == lexicon.LangEN {
		return "there"
	}
	return "cliente"
}
