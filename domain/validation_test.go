package domain_test

import (
	"errors"
	"procurement/bizerror"
	"procurement/domain"
	"procurement/seed"
	"testing"

	. "github.com/onsi/gomega"
)

func validRequest() domain.Request {
	return domain.Request{
		OrderNumber: "PED-010", RequestDate: "2024-02-01", Sector: "TI", Supplier: "Fornecedor A",
		Status: domain.StatusPending, Responsible: "Administrador",
		Items: domain.RequestItems{{ID: "item-1", Name: "Monitor", Quantity: 2, Status: domain.StatusPending}},
	}
}

func catalogWithNotes(active, required bool, t domain.FieldType) []domain.FormField {
	fields := seed.FormFields()
	for i := range fields {
		if fields[i].ID == "notes" {
			fields[i].IsActive = active
			fields[i].Required = required
			fields[i].Type = t
		}
	}
	return fields
}

func TestValidateRequest(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should accept a complete request", func(t *testing.T) {
		r, err := domain.ValidateRequest(validRequest(), seed.FormFields())
		Expect(err).To(BeNil())
		Expect(r.CustomFields).To(BeNil())
	})

	t.Run("should reject empty required standard fields", func(t *testing.T) {
		r := validRequest()
		r.Supplier = "  "
		_, err := domain.ValidateRequest(r, seed.FormFields())
		Expect(errors.Is(err, bizerror.ErrRequiredField)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("Fornecedor"))
	})

	t.Run("should not require inactive standard fields", func(t *testing.T) {
		fields := seed.FormFields()
		for i := range fields {
			if fields[i].ID == domain.FieldSupplier {
				fields[i].IsActive = false
			}
		}
		r := validRequest()
		r.Supplier = ""
		_, err := domain.ValidateRequest(r, fields)
		Expect(err).To(BeNil())
	})

	t.Run("should reject malformed dates", func(t *testing.T) {
		r := validRequest()
		r.DeliveryDate = "10/02/2024"
		_, err := domain.ValidateRequest(r, seed.FormFields())
		Expect(errors.Is(err, bizerror.ErrInvalidFieldValue)).To(BeTrue())
	})

	t.Run("should reject items without name or quantity", func(t *testing.T) {
		r := validRequest()
		r.Items = append(r.Items, domain.RequestItem{Name: "Cabo", Quantity: 0})
		_, err := domain.ValidateRequest(r, seed.FormFields())
		Expect(errors.Is(err, bizerror.ErrInvalidFieldValue)).To(BeTrue())
	})

	t.Run("should type custom values from the catalog", func(t *testing.T) {
		r := validRequest()
		r.CustomFields = domain.CustomFields{"notes": {Raw: "2024-03-01"}}

		typed, err := domain.ValidateRequest(r, catalogWithNotes(true, false, domain.FieldDate))
		Expect(err).To(BeNil())
		Expect(typed.CustomFields["notes"].Kind).To(Equal(domain.KindDate))
		d, ok := typed.CustomFields["notes"].Date()
		Expect(ok).To(BeTrue())
		Expect(d.Format(domain.DateLayout)).To(Equal("2024-03-01"))

		typed, err = domain.ValidateRequest(r, catalogWithNotes(true, false, domain.FieldTextArea))
		Expect(err).To(BeNil())
		Expect(typed.CustomFields["notes"]).To(Equal(domain.Text("2024-03-01")))
	})

	t.Run("should reject unknown inactive and standard custom ids", func(t *testing.T) {
		r := validRequest()
		r.CustomFields = domain.CustomFields{"custom-404": {Raw: "x"}}
		_, err := domain.ValidateRequest(r, seed.FormFields())
		Expect(errors.Is(err, bizerror.ErrInvalidCustomField)).To(BeTrue())

		r.CustomFields = domain.CustomFields{"notes": {Raw: "x"}}
		_, err = domain.ValidateRequest(r, seed.FormFields())
		Expect(errors.Is(err, bizerror.ErrInvalidCustomField)).To(BeTrue())

		r.CustomFields = domain.CustomFields{domain.FieldSupplier: {Raw: "x"}}
		_, err = domain.ValidateRequest(r, seed.FormFields())
		Expect(errors.Is(err, bizerror.ErrInvalidCustomField)).To(BeTrue())
	})

	t.Run("should drop empty custom values and enforce required ones", func(t *testing.T) {
		r := validRequest()
		r.CustomFields = domain.CustomFields{"notes": {Raw: ""}}
		typed, err := domain.ValidateRequest(r, catalogWithNotes(true, false, domain.FieldText))
		Expect(err).To(BeNil())
		Expect(typed.CustomFields).To(BeNil())

		_, err = domain.ValidateRequest(r, catalogWithNotes(true, true, domain.FieldText))
		Expect(errors.Is(err, bizerror.ErrRequiredField)).To(BeTrue())
	})
}

func TestValidate(t *testing.T) {
	RegisterTestingT(t)

	Expect(domain.Validate(domain.StatusCreation{Name: "Aprovado", Color: domain.ColorGreen})).To(BeNil())

	err := domain.Validate(domain.StatusCreation{Name: "Aprovado", Color: "pink"})
	var badParam *bizerror.ErrBadParam
	Expect(errors.As(err, &badParam)).To(BeTrue())

	Expect(domain.Validate(domain.IdentityCreation{Name: "Ann", Email: "not-an-email", Password: "x"})).ToNot(BeNil())
	Expect(domain.Validate(domain.IdentityCreation{Name: "Ann", Email: "ann@empresa.com", Password: "x"})).To(BeNil())
	Expect(domain.Validate(domain.FormFieldCreation{Label: "Centro de custo", Type: "number"})).ToNot(BeNil())
}
