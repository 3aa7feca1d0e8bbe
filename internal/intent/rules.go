package intent

import "broker-backoffice/internal/models"

const (
	legacySimulatorURL     = "https://vida.consegseguro.com/"
	consortiumSimulatorURL = "https://consorcio.consegseguro.com/"
)

// FallbackOrder breaks ties between equally scored categories, including the
// all-zero case. The first entry is the answer for text that matches nothing.
var FallbackOrder = []models.ProductCategory{
	models.ProductExpansion,
	models.ProductLegacy,
	models.ProductMobility,
	models.ProductHuman,
}

// DefaultRules returns the dispatch table. Keywords are lower case and
// accent free; they match as substrings.
func DefaultRules() []models.IntentRule {
	return []models.IntentRule{
		{
			Category:  models.ProductExpansion,
			Keywords:  []string{"casa", "invest", "consorcio", "juro", "construir", "comprar", "imovel"},
			Title:     "Aquisição Estratégica",
			Rationale: "Amplie seu patrimônio sem pagar juros. A ferramenta financeira ideal para aquisição de imóveis e veículos.",
			Action:    models.IntentAction{Label: "Simular Consórcio", URL: consortiumSimulatorURL},
			Active:    true,
		},
		{
			Category:  models.ProductLegacy,
			Keywords:  []string{"vida", "morre", "familia", "filho", "sucessao", "patrimonio", "esposa", "marido"},
			Title:     "Legado & Sucessão",
			Rationale: "Proteja seu legado e garanta o padrão de vida da sua família. A forma mais inteligente de sucessão patrimonial.",
			Action:    models.IntentAction{Label: "Simular Legado", URL: legacySimulatorURL},
			Active:    true,
		},
		{
			Category:  models.ProductMobility,
			Keywords:  []string{"carro", "moto", "bate", "roubo", "veiculo", "frota"},
			Title:     "Mobilidade Blindada",
			Rationale: "Garanta a continuidade da sua mobilidade. Proteção total contra imprevistos para você ou sua empresa.",
			Action:    models.IntentAction{Label: "Cotar Mobilidade", Route: "mobilidade"},
			Active:    true,
		},
		{
			Category:  models.ProductHuman,
			Keywords:  []string{"saude", "medico", "hospit", "convenio", "doenca"},
			Title:     "Escudo Capital Humano",
			Rationale: "Acesso à medicina de ponta é inegociável. Temos as melhores redes credenciadas para sua segurança.",
			Action:    models.IntentAction{Label: "Ver Planos de Saúde", Route: "saude"},
			Active:    true,
		},
	}
}
