package shared

import "testing"

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.SessionStore.Path != "./tmp/lastfm-edit.db" {
			t.Errorf("expected session store path ./tmp/lastfm-edit.db, got %s", config.SessionStore.Path)
		}

		if config.Credentials.BaseURL != "https://www.last.fm" {
			t.Errorf("expected base_url https://www.last.fm, got %s", config.Credentials.BaseURL)
		}

		if config.Retry.MaxRetries != 3 {
			t.Errorf("expected max_retries 3, got %d", config.Retry.MaxRetries)
		}
	})
}
