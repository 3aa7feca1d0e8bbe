package pipeline

import (
	"time"

	"broker-backoffice/internal/models"
)

// SeedLeads is the fixed demo board. Ids and order are stable so offline
// sessions always look the same.
func SeedLeads() []models.Lead {
	base := time.Date(2025, 2, 15, 9, 0, 0, 0, time.UTC)
	at := func(daysAgo int) time.Time { return base.AddDate(0, 0, -daysAgo) }

	leads := []models.Lead{
		{ID: "1", Name: "Roberto Almeida", Product: models.ProductMobility, ProductDetail: "Seguro Auto", EstimatedValue: "R$ 4.500", Status: models.StatusNew, CreatedAt: at(0)},
		{ID: "2", Name: "Empresa XYZ Ltda", Product: models.ProductHuman, ProductDetail: "Saúde PME", EstimatedValue: "R$ 12.000", Status: models.StatusInAnalysis, CreatedAt: at(1)},
		{ID: "3", Name: "Carla Dias", Product: models.ProductLegacy, ProductDetail: "Vida Individual", EstimatedValue: "R$ 150/mês", Status: models.StatusQuoted, CreatedAt: at(2)},
		{ID: "4", Name: "Transportes Veloz", Product: models.ProductMobility, ProductDetail: "Frota", EstimatedValue: "R$ 85.000", Status: models.StatusClosed, CreatedAt: at(3)},
		{ID: "5", Name: "Juliana Costa", Product: models.ProductGeneral, ProductDetail: "Residencial", EstimatedValue: "R$ 650", Status: models.StatusNew, CreatedAt: at(4)},
		{ID: "6", Name: "Dr. Fernando", Product: models.ProductGeneral, ProductDetail: "Resp. Civil", EstimatedValue: "R$ 2.200", Status: models.StatusInAnalysis, CreatedAt: at(5)},
	}
	for i := range leads {
		leads[i].Origin = models.OriginManual
		leads[i].UpdatedAt = leads[i].CreatedAt
	}
	return leads
}
