package storage

import (
	"time"

	"github.com/Ananth-NQI/tablepe-backend/internal/models"
)

// SeedDemo fills an empty memory store with a small menu, a weekly schedule
// and a few tables so the bot can be tried locally with USE_MEMORY_STORE=true.
func SeedDemo(m *MemoryStore) {
	for day := time.Sunday; day <= time.Saturday; day++ {
		h := models.OpeningHours{Weekday: int(day), OpensAt: "11:00", ClosesAt: "23:00"}
		if day == time.Monday {
			h = models.OpeningHours{Weekday: int(day), IsClosed: true, Note: "We rest on Mondays"}
		}
		m.SetOpeningHours(h)
	}

	mains := m.AddCategory(models.Category{Name: "Mains", SortOrder: 1, Active: true})
	drinks := m.AddCategory(models.Category{Name: "Drinks", SortOrder: 2, Active: true})

	burgers := m.AddSubcategory(models.Subcategory{CategoryID: mains.ID, Name: "Burgers", SortOrder: 1, Active: true})
	bowls := m.AddSubcategory(models.Subcategory{CategoryID: mains.ID, Name: "Bowls", SortOrder: 2, Active: true})
	cold := m.AddSubcategory(models.Subcategory{CategoryID: drinks.ID, Name: "Cold drinks", SortOrder: 1, Active: true})

	items := []models.MenuItem{
		{CategoryID: mains.ID, SubcategoryID: burgers.ID, Name: "Classic burger", Description: "Beef, cheddar, pickles", Price: 28000, DeliveryCost: 4000},
		{CategoryID: mains.ID, SubcategoryID: burgers.ID, Name: "Veggie burger", Description: "Black bean patty", Price: 26000, DeliveryCost: 4000},
		{CategoryID: mains.ID, SubcategoryID: bowls.ID, Name: "Poke bowl", Description: "Salmon, rice, avocado", Price: 34000, DeliveryCost: 5000},
		{CategoryID: drinks.ID, SubcategoryID: cold.ID, Name: "Lemonade", Price: 8000, DeliveryCost: 2000},
		{CategoryID: drinks.ID, SubcategoryID: cold.ID, Name: "Iced tea", Price: 7000, DeliveryCost: 2000},
	}
	for _, item := range items {
		m.AddMenuItem(item)
	}

	m.AddTable(models.DiningTable{Label: "T1", Capacity: 2, Location: "window"})
	m.AddTable(models.DiningTable{Label: "T2", Capacity: 4, Location: "main hall"})
	m.AddTable(models.DiningTable{Label: "T3", Capacity: 4, Location: "terrace"})
	m.AddTable(models.DiningTable{Label: "T4", Capacity: 8, Location: "main hall"})
}
