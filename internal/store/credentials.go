package store

import "fmt"

// LoadCredentials returns the saved credential. The token is empty when the
// user never logged in or has logged out.
func (s *Store) LoadCredentials() (*Credentials, error) {
	var creds Credentials
	if err := s.db.Where("id = ?", singletonID).Limit(1).Find(&creds).Error; err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	return &creds, nil
}

// SaveCredentials replaces the saved credential.
func (s *Store) SaveCredentials(creds *Credentials) error {
	creds.ID = singletonID
	if err := s.db.Save(creds).Error; err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

// ClearCredentials forgets the token along with every response fetched
// with it.
func (s *Store) ClearCredentials() error {
	if err := s.SaveCredentials(&Credentials{}); err != nil {
		return err
	}
	return s.ClearResolveCache()
}

// LoadServerURL returns the server URL, or "" before the first login.
func (s *Store) LoadServerURL() (string, error) {
	var cfg Config
	if err := s.db.Where("id = ?", singletonID).Limit(1).Find(&cfg).Error; err != nil {
		return "", fmt.Errorf("load server url: %w", err)
	}
	return cfg.ServerURL, nil
}

// SaveServerURL records the server later commands talk to.
func (s *Store) SaveServerURL(url string) error {
	if err := s.db.Save(&Config{ID: singletonID, ServerURL: url}).Error; err != nil {
		return fmt.Errorf("save server url: %w", err)
	}
	return nil
}
