package fileadapter

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	applog "github.com/darkkaiser/pricesearch/pkg/log"
)

// defaultNegativeTTL matches the reference's negative-cache lifetime:
// long enough to suppress a retry storm, short enough that a transient
// upstream blip self-heals quickly.
const defaultNegativeTTL = 60 * time.Second

// negRecord is the on-disk shape of a negative marker.
type negRecord struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// GetNegative reads a negative marker, treating an expired or missing
// one as "not found" rather than an error.
func (s *Store) GetNegative(_ context.Context, key string) (string, bool, error) {
	filename := s.resolveSafePath(generateFilename(negativeFilenameKey(key)))

	var data []byte
	err := s.locks.WithLock(strings.ToLower(filename), func() error {
		var readErr error
		data, readErr = os.ReadFile(filename)
		return readErr
	})
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, NewErrCacheReadFailed(err)
	}

	var rec negRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		applog.WithComponentAndFields(component, applog.Fields{
			"key":   key,
			"error": err,
		}).Warn("부정 캐시 파일 역직렬화 실패: 손상된 항목으로 간주하고 미스 처리")
		return "", false, nil
	}

	if time.Now().After(rec.ExpiresAt) {
		return "", false, nil
	}

	return rec.Message, true, nil
}

// SetNegative writes a negative marker with ttl (defaulting to 60s).
func (s *Store) SetNegative(_ context.Context, key string, message string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = defaultNegativeTTL
	}

	rec := negRecord{Message: message, ExpiresAt: time.Now().Add(ttl)}

	data, err := json.Marshal(rec)
	if err != nil {
		return NewErrJSONMarshalFailed(err)
	}

	filename := s.resolveSafePath(generateFilename(negativeFilenameKey(key)))

	return s.locks.WithLock(strings.ToLower(filename), func() error {
		return s.writeAtomic(filename, data)
	})
}

// negativeFilenameKey namespaces a negative marker's filename apart
// from its positive counterpart for the same cache key.
func negativeFilenameKey(key string) string {
	return "neg-" + key
}
