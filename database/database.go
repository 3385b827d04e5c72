package database

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tablebook/model"
)

// Open connects to postgres, checks the connection and migrates the schema.
func Open(dsn string, debug bool) (*gorm.DB, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, errors.Wrap(err, "ping database")
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.Restaurant{},
		&model.Reservation{},
	)
	return errors.Wrap(err, "migrate schema")
}

type AdminSeed struct {
	Name     string
	Email    string
	Password string
}

// SeedAdmin creates the bootstrap admin when the store has no admin yet.
// Self-registration always yields the user role, so without it nobody could
// ever be promoted. It is a no-op when email or password is empty.
func SeedAdmin(ctx context.Context, db *gorm.DB, seed AdminSeed, log *slog.Logger) error {
	if seed.Email == "" || seed.Password == "" {
		return nil
	}

	var count int64
	if err := db.WithContext(ctx).Model(&model.User{}).Where("role = ?", model.RoleAdmin).Count(&count).Error; err != nil {
		return errors.Wrap(err, "count admins")
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash admin password")
	}
	admin := model.User{
		Name:     seed.Name,
		Email:    model.NormalizeEmail(seed.Email),
		Role:     model.RoleAdmin,
		Password: string(hash),
	}
	if err := db.WithContext(ctx).Create(&admin).Error; err != nil {
		return errors.Wrap(err, "create admin")
	}

	log.Info("bootstrap admin created", slog.String("email", admin.Email), slog.Uint64("user_id", uint64(admin.UserID)))
	return nil
}
