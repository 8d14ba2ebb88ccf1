package db

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/onlinelabs/urenwerk/internal/models"
)

func floatPtr(f float64) *float64 { return &f }

// SeedIfEmpty loads the reference data exactly once: when the store holds zero
// clients. Subsequent starts leave user changes untouched. The whole seed runs
// in a single transaction so a half-seeded database cannot occur.
func SeedIfEmpty(db *gorm.DB) error {
	var clientCount int64
	if err := db.Model(&models.Client{}).Count(&clientCount).Error; err != nil {
		return fmt.Errorf("seed precheck: %w", err)
	}
	if clientCount > 0 {
		return nil
	}

	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		password = "wachtwoord"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed password hash: %w", err)
	}

	users := []models.User{
		{Name: "Colin Dijkstra", Email: "colin@onlinelabs.nl", MonthlyHourGoal: floatPtr(160)},
		{Name: "Imre Bernáth", Email: "imre@onlinelabs.nl", Role: models.RoleAdmin, MonthlyHourGoal: floatPtr(150)},
		{Name: "Adrian Enders", Email: "adrian@onlinelabs.nl", MonthlyHourGoal: floatPtr(160)},
		{Name: "Sanne Verschoor", Email: "sanne@onlinelabs.nl", MonthlyHourGoal: floatPtr(140)},
	}

	clientNames := []string{
		"24hour Solutions B.V.", "Advocaten van Oranje", "AMMA Jewelry",
		"ASN Autoschade", "Bots Watersport", "Cake Film", "ContactCare",
		"Damstraat Rent a Bike", "De Jong Transport", "Flinck Advocaten",
		"Forteiland Pampus", "Grachtenmuseum", "Lime Networks",
		"Message to the Moon", "Tubble", "WeBike Amsterdam",
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for i := range users {
			if users[i].Role == "" {
				users[i].Role = models.RoleMember
			}
			users[i].PasswordHash = string(hash)
			if err := tx.Create(&users[i]).Error; err != nil {
				return fmt.Errorf("seed user %s: %w", users[i].Email, err)
			}
		}
		for _, name := range clientNames {
			client := models.Client{Name: name, Address: "Adres onbekend", ZipCode: "0000 AA", City: "Plaats onbekend"}
			if err := tx.Create(&client).Error; err != nil {
				return fmt.Errorf("seed client %s: %w", name, err)
			}
			project := models.Project{Name: name, ClientID: client.ID, Rate: 120}
			if err := tx.Create(&project).Error; err != nil {
				return fmt.Errorf("seed project %s: %w", name, err)
			}
		}
		return nil
	})
}
