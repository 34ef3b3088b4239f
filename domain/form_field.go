package domain

const (
	TableFormFields = "form_fields"

	FieldText     = FieldType("text")
	FieldDate     = FieldType("date")
	FieldSelect   = FieldType("select")
	FieldTextArea = FieldType("textarea")

	FieldOrderNumber  = "orderNumber"
	FieldRequestDate  = "requestDate"
	FieldSector       = "sector"
	FieldSupplier     = "supplier"
	FieldDeliveryDate = "deliveryDate"
	FieldStatus       = "status"
	FieldResponsible  = "responsible"

	CustomFieldPrefix = "custom"
)

var StandardFieldIDs = []string{
	FieldOrderNumber, FieldRequestDate, FieldSector, FieldSupplier, FieldDeliveryDate, FieldStatus, FieldResponsible,
}

func IsStandardField(id string) bool {
	for _, s := range StandardFieldIDs {
		if s == id {
			return true
		}
	}
	return false
}

type FieldType string

// FormField defines one input of the request form. IsVisibleInList was added after
// the first deployments, rows written before lack it.
type FormField struct {
	ID              string    `json:"id" gorm:"column:id;primary_key"`
	Label           string    `json:"label" gorm:"column:label"`
	Type            FieldType `json:"type" gorm:"column:type"`
	IsActive        bool      `json:"isActive" gorm:"column:isActive"`
	Required        bool      `json:"required" gorm:"column:required"`
	IsStandard      bool      `json:"isStandard" gorm:"column:isStandard"`
	IsVisibleInList *bool     `json:"isVisibleInList,omitempty" gorm:"column:isVisibleInList"`
}

func (FormField) TableName() string {
	return TableFormFields
}

func (f FormField) Key() string {
	return f.ID
}

func (f FormField) VisibleInList() bool {
	if f.IsVisibleInList != nil {
		return *f.IsVisibleInList
	}
	return f.IsStandard
}

type FormFieldCreation struct {
	Label string    `json:"label" binding:"required"`
	Type  FieldType `json:"type" binding:"required,oneof=text date select textarea"`
}

func (c FormFieldCreation) FormField() FormField {
	visible := true
	return FormField{Label: c.Label, Type: c.Type, IsActive: true, Required: false, IsStandard: false, IsVisibleInList: &visible}
}

// BackfillVisibility gives legacy rows the visibility their standard flag implies.
func BackfillVisibility(fields []FormField) []FormField {
	for i := range fields {
		if fields[i].IsVisibleInList == nil {
			v := fields[i].IsStandard
			fields[i].IsVisibleInList = &v
		}
	}
	return fields
}

// EnsureStandardFields appends the defaults of standard fields missing from fields.
func EnsureStandardFields(fields []FormField, defaults []FormField) []FormField {
	present := map[string]bool{}
	for _, f := range fields {
		present[f.ID] = true
	}
	for _, d := range defaults {
		if d.IsStandard && !present[d.ID] {
			fields = append(fields, d)
			present[d.ID] = true
		}
	}
	return fields
}
