// users.go: identity and per-user settings store. Lives in its own
// database, configured independently of the calibration schema.
package datastore

import (
	"errors"
	"fmt"

	"github.com/tracklab/calsys/internal/conf"
	calerrors "github.com/tracklab/calsys/internal/errors"
	"gorm.io/gorm"
)

// UserStoreInterface defines the operations of the identity/settings store.
type UserStoreInterface interface {
	Close() error

	GetUser(id uint) (User, error)
	GetUserByUsername(username string) (User, error)
	CreateUser(user *User) error

	GetUserSettings(userID uint) (UserSettings, error)
	SaveUserSettings(settings *UserSettings) error
}

// UserStore implements UserStoreInterface on a GORM database.
type UserStore struct {
	DB *gorm.DB
}

// NewUserStore opens the identity store and runs its migrations.
func NewUserStore(settings *conf.Settings) (*UserStore, error) {
	db, connectionInfo, err := openStore(&settings.Output.Auth)
	if err != nil {
		return nil, fmt.Errorf("opening auth store: %w", err)
	}

	if err := db.AutoMigrate(&User{}, &UserSettings{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate auth database %s: %w", connectionInfo, err)
	}

	return &UserStore{DB: db}, nil
}

// Close closes the identity store connection.
func (us *UserStore) Close() error {
	return closeStore(us.DB)
}

// GetUser retrieves a user by ID.
func (us *UserStore) GetUser(id uint) (User, error) {
	var user User
	if err := us.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return User{}, calerrors.NotFoundError("user", fmt.Sprint(id))
		}
		return User{}, fmt.Errorf("getting user %d: %w", id, err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username.
func (us *UserStore) GetUserByUsername(username string) (User, error) {
	var user User
	if err := us.DB.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return User{}, calerrors.NotFoundError("user", username)
		}
		return User{}, fmt.Errorf("getting user %s: %w", username, err)
	}
	return user, nil
}

// CreateUser inserts a new user after validating username and email
// uniqueness, so registration returns an explicit conflict instead of a
// surfaced constraint violation.
func (us *UserStore) CreateUser(user *User) error {
	if user.Username == "" {
		return calerrors.ValidationError("username must not be empty")
	}

	var count int64
	if err := us.DB.Model(&User{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
		return fmt.Errorf("checking username: %w", err)
	}
	if count > 0 {
		return calerrors.ConflictError("user", "username", user.Username)
	}

	if err := us.DB.Model(&User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return fmt.Errorf("checking email: %w", err)
	}
	if count > 0 {
		return calerrors.ConflictError("user", "email", user.Email)
	}

	if err := us.DB.Create(user).Error; err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

// GetUserSettings retrieves the settings row for a user, creating the
// default row on first access.
func (us *UserStore) GetUserSettings(userID uint) (UserSettings, error) {
	var settings UserSettings
	err := us.DB.Where("user_id = ?", userID).First(&settings).Error
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return UserSettings{}, fmt.Errorf("getting settings for user %d: %w", userID, err)
	}

	settings = UserSettings{UserID: userID, Theme: "light", ItemsPerPage: DefaultPerPage}
	if err := us.DB.Create(&settings).Error; err != nil {
		return UserSettings{}, fmt.Errorf("creating default settings for user %d: %w", userID, err)
	}
	return settings, nil
}

// SaveUserSettings upserts the settings row for a user. Last writer wins.
func (us *UserStore) SaveUserSettings(settings *UserSettings) error {
	var existing UserSettings
	err := us.DB.Where("user_id = ?", settings.UserID).First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := us.DB.Create(settings).Error; err != nil {
				return fmt.Errorf("creating settings for user %d: %w", settings.UserID, err)
			}
			return nil
		}
		return fmt.Errorf("loading settings for user %d: %w", settings.UserID, err)
	}

	existing.Theme = settings.Theme
	existing.ItemsPerPage = settings.ItemsPerPage
	if err := us.DB.Save(&existing).Error; err != nil {
		return fmt.Errorf("saving settings for user %d: %w", settings.UserID, err)
	}
	*settings = existing
	return nil
}
