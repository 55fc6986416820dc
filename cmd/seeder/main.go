package main

import (
	"fmt"
	"log"
	"time"

	"github.com/choviet/choviet-api/internal/config"
	"github.com/choviet/choviet-api/internal/model"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var seedLocales = []string{"vi", "vi", "ko", "en", "vi"}

func main() {
	cfg := config.Load()

	// Force DB logging off to avoid noise
	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	log.Println("✅ Connected to Database")

	// Common password for all users
	password := "password123"
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("❌ Failed to hash password: %v", err)
	}

	log.Println("🌱 Seeding 5 users...")

	var users []model.User
	for i := 1; i <= 5; i++ {
		username := fmt.Sprintf("user%d", i)
		email := fmt.Sprintf("user%d@choviet.local", i)

		var existing model.User
		if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
			users = append(users, existing)
			continue
		}

		user := model.User{
			ID:          uuid.New(),
			Name:        fmt.Sprintf("Người dùng %d", i),
			Email:       email,
			Password:    string(hashedPassword),
			Locale:      seedLocales[i-1],
			PushEnabled: true,
			DMEnabled:   true,
			Avatar:      fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/svg?seed=%s", username),
		}

		if err := db.Create(&user).Error; err != nil {
			log.Printf("❌ Failed to create user %s: %v", username, err)
			continue
		}
		users = append(users, user)
		log.Printf("✅ Created user: %s | Email: %s | Pass: %s", username, email, password)
	}

	if len(users) >= 2 {
		seedConversation(db, users[0], users[1])
	}
	if len(users) >= 1 {
		seedEndpoints(db, users[0])
	}

	log.Println("🎉 Seeding completed!")
}

func seedConversation(db *gorm.DB, alice, bob model.User) {
	a, b := model.NormalizePair(alice.ID, bob.ID)

	var count int64
	db.Model(&model.Conversation{}).Where("user_a_id = ? AND user_b_id = ?", a, b).Count(&count)
	if count > 0 {
		return
	}

	conv := model.Conversation{ID: uuid.New(), UserAID: a, UserBID: b}
	if err := db.Create(&conv).Error; err != nil {
		log.Printf("❌ Failed to create conversation: %v", err)
		return
	}

	msg := model.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		SenderID:       &alice.ID,
		Body:           "Chào bạn, tủ lạnh còn không? 🛒",
		Status:         model.MessageStatusVisible,
	}
	db.Create(&msg)

	log.Printf("✅ Created demo conversation between %s and %s", alice.Name, bob.Name)
}

func seedEndpoints(db *gorm.DB, user model.User) {
	var count int64
	db.Model(&model.PushEndpoint{}).Where("user_id = ?", user.ID).Count(&count)
	if count > 0 {
		return
	}

	deviceID := "seed-android-device"
	endpoints := []model.PushEndpoint{
		{
			ID:         uuid.New(),
			UserID:     user.ID,
			Platform:   model.PlatformAndroid,
			Token:      "seed-fcm-token-android",
			DeviceID:   &deviceID,
			Active:     true,
			LastSeenAt: time.Now(),
		},
		{
			ID:          uuid.New(),
			UserID:      user.ID,
			Platform:    model.PlatformWeb,
			Token:       "seed-webpush-token",
			EndpointURL: "https://updates.push.services.mozilla.com/wpush/v2/seed",
			KeyAuth:     "c2VlZC1hdXRo",
			KeyP256dh:   "c2VlZC1wMjU2ZGg",
			Active:      true,
			LastSeenAt:  time.Now(),
		},
	}
	for _, ep := range endpoints {
		if err := db.Create(&ep).Error; err != nil {
			log.Printf("❌ Failed to create endpoint: %v", err)
		}
	}
	log.Printf("✅ Created %d demo push endpoints for %s", len(endpoints), user.Name)
}
