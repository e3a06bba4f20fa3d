package storage

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/crypto/blake2b"

	"github.com/iudanet/sitekeeper/internal/models"
)

// envelope is the persisted layout shared by every tier
type envelope struct {
	Data      models.ContentRecord `json:"data"`
	Origin    models.Origin        `json:"origin"`
	Checksum  string               `json:"checksum,omitempty"`
	Timestamp int64                `json:"timestamp"`
	Version   int64                `json:"version"`
}

// Checksum returns the hex blake2b-256 digest of the canonical JSON form of data.
// encoding/json sorts map keys, so equal records always produce equal digests.
func Checksum(data models.ContentRecord) (string, error) {
	if data == nil {
		data = models.ContentRecord{}
	}
	canonical, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal content: %w", err)
	}
	sum := blake2b.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Encode serializes snap into the full envelope written by every tier
func Encode(snap *models.Snapshot) ([]byte, error) {
	if snap == nil {
		return nil, errors.New("snapshot is nil")
	}
	if !snap.Origin.Valid() {
		return nil, fmt.Errorf("invalid snapshot origin %q", snap.Origin)
	}
	if snap.Version < 0 {
		return nil, fmt.Errorf("invalid snapshot version %d", snap.Version)
	}

	data := snap.Data
	if data == nil {
		data = models.ContentRecord{}
	}

	sum, err := Checksum(data)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(envelope{
		Data:      data,
		Origin:    snap.Origin,
		Checksum:  sum,
		Timestamp: snap.Timestamp,
		Version:   snap.Version,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return payload, nil
}

// Decode parses a stored payload.
// Empty input returns ErrEmpty; anything unparseable returns ErrCorrupt.
// When allowLegacy is set a flat {field: scalar} object is accepted as a version 0 snapshot.
func Decode(payload []byte, allowLegacy bool) (*models.Snapshot, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, ErrEmpty
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: payload is null", ErrCorrupt)
	}

	_, hasData := fields["data"]
	_, hasVersion := fields["version"]
	if hasData && hasVersion {
		return decodeEnvelope(payload)
	}

	if !allowLegacy {
		return nil, fmt.Errorf("%w: missing snapshot envelope", ErrCorrupt)
	}
	return decodeLegacy(fields)
}

func decodeEnvelope(payload []byte) (*models.Snapshot, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("%w: envelope without data", ErrCorrupt)
	}
	if !env.Origin.Valid() {
		return nil, fmt.Errorf("%w: unknown origin %q", ErrCorrupt, env.Origin)
	}
	if env.Version < 0 {
		return nil, fmt.Errorf("%w: negative version %d", ErrCorrupt, env.Version)
	}

	// Старые записи могут не содержать checksum
	if env.Checksum != "" {
		sum, err := Checksum(env.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if sum != env.Checksum {
			return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
		}
	}

	return &models.Snapshot{
		Data:      env.Data,
		Origin:    env.Origin,
		Timestamp: env.Timestamp,
		Version:   env.Version,
	}, nil
}

func decodeLegacy(fields map[string]json.RawMessage) (*models.Snapshot, error) {
	data := make(models.ContentRecord, len(fields))
	for name, raw := range fields {
		value, err := legacyScalar(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrCorrupt, name, err)
		}
		data[name] = value
	}
	return &models.Snapshot{
		Data:    data,
		Origin:  models.OriginMigration,
		Version: 0,
	}, nil
}

// legacyScalar stringifies a JSON scalar. Strings are unquoted, numbers and booleans keep their text.
func legacyScalar(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", errors.New("empty value")
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	case '{', '[', 'n':
		return "", fmt.Errorf("unsupported value %s", raw)
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", err
		}
		return n.String(), nil
	}
}

// CheckVersion verifies that next may replace the stored payload current.
// Empty or corrupt payloads never block a write; a strictly newer stored version does.
func CheckVersion(current []byte, next *models.Snapshot, allowLegacy bool) error {
	stored, err := Decode(current, allowLegacy)
	if err != nil {
		return nil
	}
	if stored.Version > next.Version {
		return fmt.Errorf("%w: stored %d, got %d", ErrStaleVersion, stored.Version, next.Version)
	}
	return nil
}
