package composer

import "github.com/spec-kit/triage-service/internal/lexicon"

// Phrase identifies a pool of interchangeable sentences.
type Phrase string

const (
	PhraseGreeting        Phrase = "greeting"
	PhraseWelcome         Phrase = "welcome"
	PhraseAssigned        Phrase = "assigned"
	PhraseAssignedDept    Phrase = "assigned_department"
	PhraseAssignedBoth    Phrase = "assigned_category_department"
	PhraseServiceOfficer  Phrase = "service_officer"
	PhraseUnassigned      Phrase = "unassigned"
	PhraseNoOfficer       Phrase = "no_service_officer"
	PhraseNoDeptAgent     Phrase = "no_department_agent"
	PhrasePriorityRaised  Phrase = "priority_raised"
	PhrasePriorityUrgent  Phrase = "priority_critical"
	PhraseEmpathy         Phrase = "empathy"
	PhraseKBAuto          Phrase = "kb_auto_response"
	PhraseKBConfirm       Phrase = "kb_confirm"
	PhraseKBSuggestions   Phrase = "kb_suggestions"
	PhraseAfterHours      Phrase = "after_hours"
	PhraseClosing         Phrase = "closing"
	PhraseReminder        Phrase = "reminder"
	PhraseWarning         Phrase = "warning"
	PhraseClosure         Phrase = "closure"
	PhraseEscalation      Phrase = "escalation"
	PhraseEscalationTitle Phrase = "escalation_subject"
)

// phrases holds every customer-facing sentence. Placeholders are positional fmt verbs; every
// entry in a pool must take the same arguments.
var phrases = map[string]map[Phrase][]string{
	lexicon.LangES: {
		PhraseGreeting: {"Hola %s,", "Estimado/a %s,", "Buen día %s,"},
		PhraseWelcome: {
			"Hemos recibido tu solicitud %s y ya la estamos revisando.",
			"Gracias por contactarnos. Tu caso %s quedó registrado correctamente.",
			"Tu solicitud %s fue creada y nuestro equipo ya fue notificado.",
		},
		PhraseAssigned:       {"Tu caso fue asignado a %s."},
		PhraseAssignedDept:   {"Lo atenderá el departamento de %s."},
		PhraseAssignedBoth:   {"Lo clasificamos como %s y lo atenderá el departamento de %s."},
		PhraseServiceOfficer: {"%s, de nuestro equipo de atención al cliente, dará seguimiento a tu caso."},
		PhraseUnassigned: {
			"En breve un agente tomará tu caso.",
			"Un miembro de nuestro equipo revisará tu caso a la brevedad.",
		},
		PhraseNoOfficer:      {"No hay oficiales de servicio disponibles en este momento."},
		PhraseNoDeptAgent:    {"No hay agentes disponibles en el departamento de %s en este momento."},
		PhrasePriorityRaised: {"Le dimos prioridad alta a tu solicitud."},
		PhrasePriorityUrgent: {"Identificamos tu solicitud como crítica y la atenderemos con máxima prioridad."},
		PhraseEmpathy: {
			"Lamentamos los inconvenientes que esto te está causando.",
			"Entendemos tu molestia y queremos resolverlo cuanto antes.",
		},
		PhraseKBAuto:        {"Encontramos un artículo que podría resolver tu consulta: \"%s\".\n\n%s\n\nLéelo completo aquí: %s"},
		PhraseKBConfirm:     {"Si esto resolvió tu problema, confírmanoslo. Si no, responde a este mensaje y un agente continuará con tu caso."},
		PhraseKBSuggestions: {"Mientras tanto, estos artículos podrían ayudarte:"},
		PhraseAfterHours:    {"Nuestro horario de atención es de %02d:00 a %02d:00; responderemos en cuanto se reanude."},
		PhraseClosing: {
			"Quedamos atentos.",
			"Saludos cordiales.",
			"Gracias por tu paciencia.",
		},
		PhraseReminder: {"Seguimos esperando tu respuesta sobre el caso %s. ¿Pudiste revisar la información que te enviamos?"},
		PhraseWarning:  {"Aún no recibimos respuesta sobre el caso %s. Si no tenemos noticias en las próximas %d horas, lo cerraremos automáticamente."},
		PhraseClosure:  {"Cerramos el caso %s tras %d días sin respuesta. Si necesitas más ayuda, puedes abrir una nueva solicitud."},
		PhraseEscalation: {
			"El caso %s requiere atención: prioridad %s, sentimiento %s.\nAsunto: %s",
		},
		PhraseEscalationTitle: {"Escalamiento automático del caso %s"},
	},
	lexicon.LangEN: {
		PhraseGreeting: {"Hi %s,", "Dear %s,", "Hello %s,"},
		PhraseWelcome: {
			"We received your request %s and are already looking into it.",
			"Thanks for reaching out. Your case %s has been logged.",
			"Your request %s was created and our team has been notified.",
		},
		PhraseAssigned:       {"Your case was assigned to %s."},
		PhraseAssignedDept:   {"It will be handled by the %s department."},
		PhraseAssignedBoth:   {"We classified it as %s and it will be handled by the %s department."},
		PhraseServiceOfficer: {"%s from our customer care team will follow up on your case."},
		PhraseUnassigned: {
			"An agent will pick up your case shortly.",
			"A member of our team will review your case soon.",
		},
		PhraseNoOfficer:      {"No service officers are available right now."},
		PhraseNoDeptAgent:    {"No agents are available in the %s department right now."},
		PhrasePriorityRaised: {"We gave your request high priority."},
		PhrasePriorityUrgent: {"We flagged your request as critical and will handle it with top priority."},
		PhraseEmpathy: {
			"We are sorry for the trouble this is causing you.",
			"We understand your frustration and want to fix this quickly.",
		},
		PhraseKBAuto:        {"We found an article that may answer your question: \"%s\".\n\n%s\n\nRead it here: %s"},
		PhraseKBConfirm:     {"If this solved your problem, please let us know. Otherwise reply to this message and an agent will continue with your case."},
		PhraseKBSuggestions: {"Meanwhile, these articles might help:"},
		PhraseAfterHours:    {"Our support hours are %02d:00 to %02d:00; we will reply as soon as they resume."},
		PhraseClosing: {
			"Best regards.",
			"Kind regards.",
			"Thanks for your patience.",
		},
		PhraseReminder: {"We are still waiting for your reply on case %s. Did you get a chance to review our last message?"},
		PhraseWarning:  {"We have not heard back about case %s. If we get no reply within %d hours, it will be closed automatically."},
		PhraseClosure:  {"We closed case %s after %d days without a reply. If you still need help, feel free to open a new request."},
		PhraseEscalation: {
			"Case %s needs attention: priority %s, sentiment %s.\nSubject: %s",
		},
		PhraseEscalationTitle: {"Automatic escalation for case %s"},
	},
}
