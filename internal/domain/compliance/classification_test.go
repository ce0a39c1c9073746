package compliance

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClassificationFixture(t *testing.T) (*MemoryStore, *ClassificationService, *DataClassification, *DataClassification) {
	t.Helper()
	freezeClock(t, testNow)
	store := NewMemoryStore()
	svc := NewClassificationService(store)
	restricted, err := svc.CreateClassification(context.Background(), ClassificationInput{Name: "restricted", EncryptionRequired: true})
	require.NoError(t, err)
	internal, err := svc.CreateClassification(context.Background(), ClassificationInput{Name: "internal"})
	require.NoError(t, err)
	return store, svc, restricted, internal
}

func TestShouldEncryptField(t *testing.T) {
	ctx := context.Background()
	_, svc, restricted, _ := newClassificationFixture(t)

	_, err := svc.ClassifyField(ctx, FieldInput{TableName: "user", FieldName: "ssn", ClassificationID: restricted.ID, IsPII: true})
	require.NoError(t, err)

	encrypt, err := svc.ShouldEncryptField(ctx, "user", "ssn")
	require.NoError(t, err)
	assert.True(t, encrypt)

	encrypt, err = svc.ShouldEncryptField(ctx, "user", "nickname")
	require.NoError(t, err)
	assert.False(t, encrypt)
}

func TestShouldEncryptFieldDanglingReferenceIsFalse(t *testing.T) {
	ctx := context.Background()
	store, svc, restricted, _ := newClassificationFixture(t)
	_, err := svc.ClassifyField(ctx, FieldInput{TableName: "user", FieldName: "ssn", ClassificationID: restricted.ID})
	require.NoError(t, err)

	store.DeleteClassification(restricted.ID)

	encrypt, err := svc.ShouldEncryptField(ctx, "user", "ssn")
	require.NoError(t, err)
	assert.False(t, encrypt)
}

func TestClassifyFieldUnknownClassification(t *testing.T) {
	ctx := context.Background()
	_, svc, _, _ := newClassificationFixture(t)

	_, err := svc.ClassifyField(ctx, FieldInput{TableName: "user", FieldName: "ssn", ClassificationID: "nope"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, ErrUnknownClassification)

	field, err := svc.GetFieldClassification(ctx, "user", "ssn")
	require.NoError(t, err)
	assert.Nil(t, field)
}

func TestClassifyFieldUpserts(t *testing.T) {
	ctx := context.Background()
	_, svc, restricted, internal := newClassificationFixture(t)

	first, err := svc.ClassifyField(ctx, FieldInput{TableName: "user", FieldName: "email", ClassificationID: internal.ID, IsPII: true})
	require.NoError(t, err)
	second, err := svc.ClassifyField(ctx, FieldInput{TableName: "user", FieldName: "email", ClassificationID: restricted.ID, IsPII: true, MaskDisplay: true})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	fields, err := svc.ListFieldClassifications(ctx, FieldFilter{TableName: "user"})
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, restricted.ID, fields[0].ClassificationID)
	assert.True(t, fields[0].MaskDisplay)
}

func TestShouldMaskAndPIIFields(t *testing.T) {
	ctx := context.Background()
	_, svc, restricted, internal := newClassificationFixture(t)
	_, err := svc.ClassifyField(ctx, FieldInput{TableName: "user", FieldName: "phone", ClassificationID: restricted.ID, IsPII: true, MaskDisplay: true})
	require.NoError(t, err)
	_, err = svc.ClassifyField(ctx, FieldInput{TableName: "brand", FieldName: "name", ClassificationID: internal.ID})
	require.NoError(t, err)

	mask, err := svc.ShouldMaskField(ctx, "user", "phone")
	require.NoError(t, err)
	assert.True(t, mask)
	mask, err = svc.ShouldMaskField(ctx, "brand", "name")
	require.NoError(t, err)
	assert.False(t, mask)
	mask, err = svc.ShouldMaskField(ctx, "brand", "unknown")
	require.NoError(t, err)
	assert.False(t, mask)

	pii, err := svc.GetPIIFields(ctx)
	require.NoError(t, err)
	require.Len(t, pii, 1)
	assert.Equal(t, "phone", pii[0].FieldName)
}

func TestDuplicateClassificationName(t *testing.T) {
	_, svc, _, _ := newClassificationFixture(t)
	_, err := svc.CreateClassification(context.Background(), ClassificationInput{Name: "restricted"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, ErrDuplicate)
}

// reverseCipher stands in for AES so the test can see what was sealed.
type reverseCipher struct{}

func (reverseCipher) EncryptField(table, field, value string) (string, error) {
	runes := []rune(value)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return "sealed:" + table + "." + field + ":" + string(runes), nil
}

func (reverseCipher) DecryptField(table, field, value string) (string, error) {
	prefix := "sealed:" + table + "." + field + ":"
	if !strings.HasPrefix(value, prefix) {
		return value, nil
	}
	runes := []rune(strings.TrimPrefix(value, prefix))
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes), nil
}

func TestFieldProtectorRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, svc, restricted, internal := newClassificationFixture(t)
	_, err := svc.ClassifyField(ctx, FieldInput{TableName: "user", FieldName: "ssn", ClassificationID: restricted.ID, IsPII: true, MaskDisplay: true})
	require.NoError(t, err)
	_, err = svc.ClassifyField(ctx, FieldInput{TableName: "user", FieldName: "email", ClassificationID: internal.ID, IsPII: true, MaskDisplay: true})
	require.NoError(t, err)

	protector := NewFieldProtector(svc, reverseCipher{})
	record := map[string]any{"ssn": "123-45-6789", "email": "jane@example.com", "age": 41, "nickname": "jd"}

	protected, err := protector.ProtectRecord(ctx, "user", record)
	require.NoError(t, err)
	assert.Equal(t, "sealed:user.ssn:9876-54-321", protected["ssn"])
	assert.Equal(t, "jane@example.com", protected["email"])
	assert.Equal(t, 41, protected["age"])
	assert.Equal(t, "123-45-6789", record["ssn"], "input is not modified")

	revealed, err := protector.RevealRecord("user", protected)
	require.NoError(t, err)
	assert.Equal(t, record, revealed)

	masked, err := protector.MaskRecord(ctx, "user", revealed)
	require.NoError(t, err)
	assert.Equal(t, "****6789", masked["ssn"])
	assert.Equal(t, "****.com", masked["email"])
	assert.Equal(t, "jd", masked["nickname"])
}

func TestMaskValue(t *testing.T) {
	assert.Equal(t, "****", MaskValue(""))
	assert.Equal(t, "****", MaskValue("abcd"))
	assert.Equal(t, "****bcde", MaskValue("abcde"))
	assert.Equal(t, "****ñoño", MaskValue("señoño"))
}

func TestEnsureDefaultClassificationsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	_, svc, _, _ := newClassificationFixture(t)

	added, err := svc.EnsureDefaultClassifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, added, "restricted and internal already exist")

	added, err = svc.EnsureDefaultClassifications(ctx)
	require.NoError(t, err)
	assert.Zero(t, added)

	all, err := svc.ListClassifications(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}
