package intent

import (
	"testing"

	"broker-backoffice/internal/models"

	"github.com/stretchr/testify/assert"
)

func newTestClassifier() *Classifier {
	return NewClassifier(nil, Options{AccentFolding: true})
}

func TestClassify(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		name  string
		input string
		want  models.ProductCategory
	}{
		{"car crash", "Bati meu carro ontem", models.ProductMobility},
		{"fleet", "Preciso cotar a frota da empresa", models.ProductMobility},
		{"family protection", "Quero proteger minha família e meus filhos", models.ProductLegacy},
		{"health with accents", "Plano de saúde com bom hospital", models.ProductHuman},
		{"consortium", "Quero comprar um imóvel sem juros", models.ProductExpansion},
		{"upper case", "CARRO ROUBADO", models.ProductMobility},
		{"no keywords", "olá, bom dia", models.ProductExpansion},
		{"empty", "", models.ProductExpansion},
		{"whitespace", "   ", models.ProductExpansion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.input).Category)
		})
	}
}

func TestClassify_StrictlyHighestWins(t *testing.T) {
	c := newTestClassifier()

	// vida, familia, filho against carro
	s := c.Classify("seguro de vida para a familia e filho, tenho um carro")
	assert.Equal(t, models.ProductLegacy, s.Category)
	assert.Equal(t, 3, s.Scores[models.ProductLegacy])
	assert.Equal(t, 1, s.Scores[models.ProductMobility])
}

func TestClassify_TiesFollowFallbackOrder(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		input string
		want  models.ProductCategory
	}{
		{"casa e carro", models.ProductExpansion},   // expansion vs mobility
		{"vida e carro", models.ProductLegacy},      // legacy vs mobility
		{"moto e medico", models.ProductMobility},   // mobility vs human
		{"filho no hospital", models.ProductLegacy}, // legacy vs human
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			for i := 0; i < 20; i++ {
				assert.Equal(t, tt.want, c.Classify(tt.input).Category)
			}
		})
	}
}

func TestClassify_AccentFoldingCanBeDisabled(t *testing.T) {
	raw := NewClassifier(nil, Options{AccentFolding: false})

	assert.Equal(t, models.ProductExpansion, raw.Classify("saúde").Category)
	assert.Equal(t, models.ProductHuman, raw.Classify("saude").Category)
	assert.Equal(t, models.ProductHuman, newTestClassifier().Classify("saúde").Category)
}

func TestClassify_Actions(t *testing.T) {
	c := newTestClassifier()

	legacy := c.Classify("vida")
	assert.Equal(t, "https://vida.consegseguro.com/", legacy.Action.URL)
	assert.Empty(t, legacy.Action.Route)

	mobility := c.Classify("carro")
	assert.Equal(t, "mobilidade", mobility.Action.Route)
	assert.Empty(t, mobility.Action.URL)
	assert.True(t, mobility.Navigable())
	assert.NotEmpty(t, mobility.Rationale)
}

func TestClassify_InactiveCategory(t *testing.T) {
	c := NewClassifier(nil, Options{AccentFolding: true, Inactive: []models.ProductCategory{models.ProductHuman}})

	s := c.Classify("convenio medico")
	assert.Equal(t, models.ProductHuman, s.Category)
	assert.False(t, s.Active)
	assert.False(t, s.Navigable())
}

func TestClassify_CustomRules(t *testing.T) {
	rules := []models.IntentRule{
		{Category: models.ProductHuman, Keywords: []string{"Dente"}, Active: true},
	}
	c := NewClassifier(rules, Options{})

	assert.Equal(t, 1, c.Score("dentes")[models.ProductHuman])
	assert.Equal(t, models.ProductHuman, c.Classify("nada").Category)
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(""))
	assert.True(t, IsBlank(" \n\t"))
	assert.False(t, IsBlank("a"))
}
