// Package lexicon holds the static keyword tables used by the triage engine. All entries are
// lower-case; matching is done against lower-cased ticket text.
package lexicon

import "github.com/spec-kit/triage-service/internal/domain"

// Supported reply languages.
const (
	LangES = "es"
	LangEN = "en"
)

// CategoryRule pairs a category with its keyword list.
type CategoryRule struct {
	Category domain.TicketCategory
	Keywords []string
}

// CategoryRules is evaluated in order; the first category with a hit wins. Complaint language
// is first so it outranks technical vocabulary.
var CategoryRules = []CategoryRule{
	{
		Category: domain.CategoryServiceComplaint,
		Keywords: []string{
			"queja", "reclamo", "reclamación", "reclamacion", "mal servicio", "mala atención",
			"mala atencion", "pésima atención", "pesima atencion", "atención al cliente",
			"atencion al cliente", "nadie responde", "nadie me responde", "complaint",
			"bad service", "poor service", "terrible service", "customer service",
			"no one responds", "nobody answers",
		},
	},
	{
		Category: domain.CategoryInfrastructure,
		Keywords: []string{
			"servidor", "server", "hardware", "impresora", "printer", "computadora", "computer",
			"laptop", "portátil", "disco duro", "hard drive", "respaldo", "backup",
			"data center", "datacenter", "máquina virtual", "maquina virtual", "virtual machine",
			"almacenamiento", "storage", "monitor", "teclado", "keyboard",
		},
	},
	{
		Category: domain.CategoryNetwork,
		Keywords: []string{
			"conexión", "conexion", "internet", "wifi", "wi-fi", "network", "vpn", "router",
			"firewall", "dns", "ancho de banda", "bandwidth", "latencia", "latency", "ethernet",
			"red local", "sin red", "cable de red", "proxy",
		},
	},
	{
		Category: domain.CategoryAccounting,
		Keywords: []string{
			"factura", "facturar", "facturación", "facturacion", "invoice", "billing", "pagos",
			"mi pago", "payment", "contabilidad", "accounting", "cobro", "reembolso", "refund",
			"impuestos", "nómina", "nomina", "payroll", "estado de cuenta", "cuentas por cobrar",
		},
	},
	{
		Category: domain.CategoryConsulting,
		Keywords: []string{
			"asesoría", "asesoria", "consultoría", "consultoria", "consulting", "advice",
			"recomendación", "recomendacion", "recommendation", "capacitación", "capacitacion",
			"training", "cotización", "cotizacion", "quote", "propuesta", "proposal",
		},
	},
	{
		Category: domain.CategoryDevelopment,
		Keywords: []string{
			"código", "codigo", "source code", "bug", "desarrollo", "development", "endpoint",
			"api rest", "deploy", "despliegue", "base de datos", "database", "software",
			"aplicación", "aplicacion", "application", "feature", "funcionalidad",
			"integración", "integracion", "integration", "script", "stack trace",
		},
	},
	{
		Category: domain.CategorySupport,
		Keywords: []string{
			"ayuda", "help", "soporte", "support", "problema", "problem", "error", "no funciona",
			"not working", "falla", "contraseña", "contrasena", "password", "acceso", "access",
			"login", "instalar", "install", "configurar", "configure", "usuario", "user",
		},
	},
}

// PriorityRule pairs a priority with the keywords that trigger it.
type PriorityRule struct {
	Priority domain.TicketPriority
	Keywords []string
}

// PriorityRules is evaluated in order: CRITICAL, then HIGH, then LOW.
var PriorityRules = []PriorityRule{
	{
		Priority: domain.TicketPriorityCritical,
		Keywords: []string{
			"sistema caído", "sistema caido", "caída total", "caida total", "no funciona nada",
			"crítico", "critico", "critical", "system down", "outage", "emergencia",
			"emergency", "producción detenida", "produccion detenida", "production down",
			"pérdida de datos", "perdida de datos", "data loss", "brecha de seguridad",
			"security breach",
		},
	},
	{
		Priority: domain.TicketPriorityHigh,
		Keywords: []string{
			"urgente", "urgent", "asap", "lo antes posible", "cuanto antes", "importante",
			"important", "bloqueado", "blocked", "no puedo trabajar", "cannot work",
			"can't work", "alta prioridad", "high priority",
		},
	},
	{
		Priority: domain.TicketPriorityLow,
		Keywords: []string{
			"cuando puedan", "when you can", "sin prisa", "no rush", "consulta", "pregunta",
			"question", "sugerencia", "suggestion", "baja prioridad", "low priority",
		},
	},
}

// NegativeKeywords marks frustrated or complaining language.
var NegativeKeywords = []string{
	"terrible", "horrible", "pésimo", "pesimo", "pésima", "pesima", "useless", "inútil",
	"inutil", "molesto", "molesta", "frustrado", "frustrada", "frustrated", "frustrating",
	"angry", "enojado", "enojada", "furioso", "furiosa", "inaceptable", "unacceptable",
	"worst", "el peor", "awful", "decepcionado", "decepcionada", "disappointed", "harto",
	"harta", "fed up", "ridículo", "ridiculo", "ridiculous", "incompetent", "incompetente",
	"vergüenza", "verguenza", "disgusting", "annoyed", "hate",
}

// EnglishWords and SpanishWords are function words used for language detection.
var EnglishWords = map[string]struct{}{}

// SpanishWords see EnglishWords.
var SpanishWords = map[string]struct{}{}

var englishWordList = []string{
	"the", "is", "are", "was", "my", "your", "this", "that", "with", "and", "not", "can",
	"cannot", "have", "has", "please", "i", "it", "to", "of", "for", "on", "in", "we", "you",
	"do", "does", "don't", "can't", "what", "when", "how", "why", "there", "be", "an",
}

var spanishWordList = []string{
	"el", "la", "los", "las", "de", "del", "que", "no", "es", "por", "para", "con", "mi", "un",
	"una", "en", "y", "se", "puedo", "está", "esta", "son", "hay", "al", "lo", "su", "pero",
	"cómo", "como", "qué", "cuando", "porque", "favor", "tengo", "me", "muy",
}

// KBStopWords are generic support words ignored when matching knowledge-base articles. Only
// words of five or more letters matter here since shorter tokens are dropped first.
var KBStopWords = map[string]struct{}{}

var kbStopWordList = []string{
	// es
	"hola", "buenos", "buenas", "tardes", "noches", "gracias", "favor", "necesito", "quiero",
	"puedo", "puede", "pueden", "podría", "podrian", "ayuda", "ayudar", "problema",
	"problemas", "tengo", "tenemos", "sistema", "sistemas", "ticket", "soporte", "error",
	"errores", "cuando", "donde", "desde", "hasta", "sobre", "porque", "también", "tambien",
	"estoy", "estamos", "tiene", "hacer", "saber", "quisiera", "urgente", "siempre", "ahora",
	"todos", "todas", "nuestro", "nuestra", "mucho", "muchas", "gracias", "saludos", "atentamente",
	"funciona", "funcionando", "solicitud", "consulta", "pregunta", "momento", "parte", "favor",
	// en
	"hello", "thanks", "thank", "please", "would", "could", "should", "there", "their",
	"about", "which", "where", "while", "today", "issue", "issues", "problem", "problems",
	"support", "system", "systems", "error", "errors", "ticket", "urgent", "working", "still",
	"since", "after", "before", "again", "every", "having", "being", "really", "regards",
	"request", "question", "something", "anything", "cannot",
}

// SkillNoiseWords are discarded from skill keyword extraction.
var SkillNoiseWords = map[string]struct{}{}

var skillNoiseWordList = []string{
	"error", "errores", "system", "sistema", "ticket", "support", "soporte", "problema",
	"problem", "ayuda", "help", "favor", "please", "gracias", "thanks", "hola", "hello",
	"tengo", "have", "with", "para", "that", "this", "como", "cuando", "donde", "puedo",
	"necesito", "need", "urgente", "urgent", "from", "desde", "esta", "este", "pero", "when",
	"what", "there", "they", "funciona", "working", "todo", "nada", "hace", "sobre",
}

// CategoryDepartments maps categories onto department names. Categories missing here route
// directly to a service officer.
var CategoryDepartments = map[domain.TicketCategory]string{
	domain.CategoryInfrastructure: "Infraestructura",
	domain.CategoryNetwork:        "Redes",
	domain.CategoryAccounting:     "Contabilidad",
	domain.CategoryConsulting:     "Consultoría",
	domain.CategoryDevelopment:    "Desarrollo",
	domain.CategorySupport:        "Soporte Técnico",
}

var categoryLabels = map[string]map[domain.TicketCategory]string{
	LangES: {
		domain.CategoryServiceComplaint: "Queja de servicio",
		domain.CategoryInfrastructure:   "Infraestructura",
		domain.CategoryNetwork:          "Redes y conectividad",
		domain.CategoryAccounting:       "Contabilidad",
		domain.CategoryConsulting:       "Consultoría",
		domain.CategoryDevelopment:      "Desarrollo",
		domain.CategorySupport:          "Soporte técnico",
		domain.CategoryOther:            "Otro",
	},
	LangEN: {
		domain.CategoryServiceComplaint: "Service complaint",
		domain.CategoryInfrastructure:   "Infrastructure",
		domain.CategoryNetwork:          "Networking",
		domain.CategoryAccounting:       "Accounting",
		domain.CategoryConsulting:       "Consulting",
		domain.CategoryDevelopment:      "Development",
		domain.CategorySupport:          "Technical support",
		domain.CategoryOther:            "Other",
	},
}

func init() {
	fill(EnglishWords, englishWordList)
	fill(SpanishWords, spanishWordList)
	fill(KBStopWords, kbStopWordList)
	fill(SkillNoiseWords, skillNoiseWordList)
}

func fill(set map[string]struct{}, words []string) {
	for _, w := range words {
		set[w] = struct{}{}
	}
}

// DepartmentFor returns the department name for a category.
func DepartmentFor(category domain.TicketCategory) (string, bool) {
	name, ok := CategoryDepartments[category]
	return name, ok
}

// CategoryLabel returns the human label of a category in lang, falling back to Spanish.
func CategoryLabel(category domain.TicketCategory, lang string) string {
	labels, ok := categoryLabels[lang]
	if !ok {
		labels = categoryLabels[LangES]
	}
	if label, ok := labels[category]; ok {
		return label
	}
	return labels[domain.CategoryOther]
}

// NormalizeLanguage clamps lang to a supported language.
func NormalizeLanguage(lang string) string {
	if lang == LangEN {
		return LangEN
	}
	return LangES
}
