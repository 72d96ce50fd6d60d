package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/triage-service/internal/domain"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "spanish function words", text: "No puedo entrar a la cuenta de mi empresa", want: "es"},
		{name: "english function words", text: "I cannot open the invoice for my account", want: "en"},
		{name: "empty", text: "", want: "es"},
		{name: "no function words", text: "VPN 404 xyz", want: "es"},
		{name: "tie goes to spanish", text: "the el", want: "es"},
		{name: "accented spanish", text: "¿Qué está pasando con el servidor?", want: "es"},
		{name: "english contraction", text: "It doesn't work and I can't log in", want: "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLanguage(tt.text))
		})
	}
}

func TestDetectPriority_CriticalOutranksOtherBuckets(t *testing.T) {
	texts := []string{
		"outage, urgent, when you can",
		"consulta urgente: sistema caído",
		"Critical question, low priority",
	}
	for _, text := range texts {
		p := DetectPriority(text)
		require.NotNil(t, p, text)
		assert.Equal(t, domain.TicketPriorityCritical, *p, text)
	}
}

func TestDetectPriority_Buckets(t *testing.T) {
	high := DetectPriority("Necesito esto urgente")
	require.NotNil(t, high)
	assert.Equal(t, domain.TicketPriorityHigh, *high)

	low := DetectPriority("una sugerencia cuando puedan")
	require.NotNil(t, low)
	assert.Equal(t, domain.TicketPriorityLow, *low)

	assert.Nil(t, DetectPriority("cambiar el logo"))
}

func TestAnalyze_NegativeSentimentRaisesPriority(t *testing.T) {
	t.Run("no keyword becomes HIGH", func(t *testing.T) {
		a := Analyze("Estoy harto", "el formulario sigue igual")
		require.NotNil(t, a.Priority)
		assert.Equal(t, domain.TicketPriorityHigh, *a.Priority)
		assert.True(t, a.PriorityChanged)
	})
	t.Run("LOW becomes HIGH", func(t *testing.T) {
		a := Analyze("Pregunta", "esto es ridículo")
		require.NotNil(t, a.Priority)
		assert.Equal(t, domain.TicketPriorityHigh, *a.Priority)
		assert.True(t, a.PriorityChanged)
	})
	t.Run("CRITICAL is never downgraded", func(t *testing.T) {
		a := Analyze("Outage", "this is awful")
		require.NotNil(t, a.Priority)
		assert.Equal(t, domain.TicketPriorityCritical, *a.Priority)
		assert.False(t, a.PriorityChanged)
	})
	t.Run("HIGH stays HIGH without flag", func(t *testing.T) {
		a := Analyze("Urgent", "this is awful")
		require.NotNil(t, a.Priority)
		assert.Equal(t, domain.TicketPriorityHigh, *a.Priority)
		assert.False(t, a.PriorityChanged)
	})
	t.Run("neutral text leaves priority nil", func(t *testing.T) {
		a := Analyze("Cambio de logo", "quisiera actualizar el logo del portal")
		assert.Nil(t, a.Priority)
		assert.False(t, a.PriorityChanged)
		assert.Equal(t, domain.SentimentNeutral, a.Sentiment)
	})
}

func TestClassify_Precedence(t *testing.T) {
	tests := []struct {
		name string
		text string
		want domain.TicketCategory
	}{
		{name: "complaint beats development", text: "Queja: el bug del software sigue ahí", want: domain.CategoryServiceComplaint},
		{name: "infrastructure beats support", text: "el servidor da error", want: domain.CategoryInfrastructure},
		{name: "network", text: "la VPN no conecta", want: domain.CategoryNetwork},
		{name: "accounting", text: "Invoice amount is wrong", want: domain.CategoryAccounting},
		{name: "consulting", text: "Necesitamos una cotización", want: domain.CategoryConsulting},
		{name: "development", text: "deploy failed on staging", want: domain.CategoryDevelopment},
		{name: "support", text: "olvidé mi contraseña", want: domain.CategorySupport},
		{name: "other", text: "cambiar el logo", want: domain.CategoryOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Analyze(tt.text, "").Category)
		})
	}
}

func TestAnalyze_SpanishOutage(t *testing.T) {
	a := Analyze("Sistema caído, no puedo facturar, es urgente", "")

	assert.Equal(t, "es", a.Language)
	assert.Equal(t, domain.SentimentNeutral, a.Sentiment)
	require.NotNil(t, a.Priority)
	assert.Equal(t, domain.TicketPriorityCritical, *a.Priority)
	assert.False(t, a.PriorityChanged)
	// "facturar" is an accounting keyword; nothing earlier in the order matches.
	assert.Equal(t, domain.CategoryAccounting, a.Category)
}

func TestAnalyze_EnglishComplaint(t *testing.T) {
	a := Analyze("This is terrible, your service is useless", "")

	assert.Equal(t, "en", a.Language)
	assert.Equal(t, domain.SentimentNegative, a.Sentiment)
	require.NotNil(t, a.Priority)
	assert.Equal(t, domain.TicketPriorityHigh, *a.Priority)
	assert.True(t, a.PriorityChanged)
}

func TestAnalyze_EmptyInput(t *testing.T) {
	a := Analyze("", "")
	assert.Equal(t, "es", a.Language)
	assert.Equal(t, domain.SentimentNeutral, a.Sentiment)
	assert.Equal(t, domain.CategoryOther, a.Category)
	assert.Nil(t, a.Priority)
	assert.InDelta(t, 0.5, a.Confidence, 0.001)
}
