package compliance

import (
	"context"
	"fmt"
)

const maskPrefix = "****"

type FieldCipher interface {
	EncryptField(table, field, value string) (string, error)
	DecryptField(table, field, value string) (string, error)
}

// FieldProtector applies field classifications to records crossing the
// storage and display boundaries.
type FieldProtector struct {
	classifier *ClassificationService
	cipher     FieldCipher
}

func NewFieldProtector(classifier *ClassificationService, cipher FieldCipher) *FieldProtector {
	return &FieldProtector{classifier: classifier, cipher: cipher}
}

// ProtectRecord returns a copy of record with every string column that must
// be encrypted replaced by its ciphertext.
func (p *FieldProtector) ProtectRecord(ctx context.Context, table string, record map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(record))
	for field, value := range record {
		out[field] = value
		text, ok := value.(string)
		if !ok || text == "" {
			continue
		}
		encrypt, err := p.classifier.ShouldEncryptField(ctx, table, field)
		if err != nil {
			return nil, err
		}
		if !encrypt {
			continue
		}
		sealed, err := p.cipher.EncryptField(table, field, text)
		if err != nil {
			return nil, fmt.Errorf("encrypt %s.%s: %w", table, field, err)
		}
		out[field] = sealed
	}
	return out, nil
}

// RevealRecord decrypts every sealed string column of record.
func (p *FieldProtector) RevealRecord(table string, record map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(record))
	for field, value := range record {
		out[field] = value
		text, ok := value.(string)
		if !ok {
			continue
		}
		plain, err := p.cipher.DecryptField(table, field, text)
		if err != nil {
			return nil, fmt.Errorf("decrypt %s.%s: %w", table, field, err)
		}
		out[field] = plain
	}
	return out, nil
}

// MaskRecord returns a copy of record with masked columns reduced to their
// last four characters.
func (p *FieldProtector) MaskRecord(ctx context.Context, table string, record map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(record))
	for field, value := range record {
		out[field] = value
		text, ok := value.(string)
		if !ok {
			continue
		}
		mask, err := p.classifier.ShouldMaskField(ctx, table, field)
		if err != nil {
			return nil, err
		}
		if mask {
			out[field] = MaskValue(text)
		}
	}
	return out, nil
}

func MaskValue(value string) string {
	runes := []rune(value)
	if len(runes) <= 4 {
		return maskPrefix
	}
	return maskPrefix + string(runes[len(runes)-4:])
}
