package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

const (
	TableRequests = "requests"

	DateLayout = "2006-01-02"
)

type RequestItem struct {
	ID       string `json:"id"`
	Name     string `json:"name" binding:"required"`
	Quantity int    `json:"quantity" binding:"gte=1"`
	Status   string `json:"status"`
}

type RequestItems []RequestItem

type Request struct {
	ID           int64        `json:"id" gorm:"column:id;primary_key;auto_increment:false"`
	OrderNumber  string       `json:"orderNumber" gorm:"column:orderNumber"`
	RequestDate  string       `json:"requestDate" gorm:"column:requestDate"`
	Sector       string       `json:"sector" gorm:"column:sector"`
	Supplier     string       `json:"supplier" gorm:"column:supplier"`
	DeliveryDate string       `json:"deliveryDate" gorm:"column:deliveryDate"`
	Status       string       `json:"status" gorm:"column:status"`
	Responsible  string       `json:"responsible" gorm:"column:responsible"`
	Items        RequestItems `json:"items" gorm:"column:items" sql:"type:TEXT"`
	CustomFields CustomFields `json:"customFields,omitempty" gorm:"column:customFields" sql:"type:TEXT"`
}

func (Request) TableName() string {
	return TableRequests
}

func (r Request) Key() int64 {
	return r.ID
}

// StandardValue reads the struct field backing a standard form field.
func (r Request) StandardValue(fieldID string) (string, bool) {
	switch fieldID {
	case FieldOrderNumber:
		return r.OrderNumber, true
	case FieldRequestDate:
		return r.RequestDate, true
	case FieldSector:
		return r.Sector, true
	case FieldSupplier:
		return r.Supplier, true
	case FieldDeliveryDate:
		return r.DeliveryDate, true
	case FieldStatus:
		return r.Status, true
	case FieldResponsible:
		return r.Responsible, true
	}
	return "", false
}

// FieldValue resolves a form field against the standard columns first, then the custom values.
func (r Request) FieldValue(fieldID string) string {
	if v, ok := r.StandardValue(fieldID); ok {
		return v
	}
	return r.CustomFields[fieldID].Raw
}

type RequestCreation struct {
	OrderNumber  string            `json:"orderNumber"`
	RequestDate  string            `json:"requestDate"`
	Sector       string            `json:"sector"`
	Supplier     string            `json:"supplier"`
	DeliveryDate string            `json:"deliveryDate"`
	Status       string            `json:"status"`
	Responsible  string            `json:"responsible"`
	Items        []RequestItem     `json:"items" binding:"dive"`
	CustomFields map[string]string `json:"customFields"`
}

func (c RequestCreation) Request() Request {
	r := Request{
		OrderNumber: c.OrderNumber, RequestDate: c.RequestDate, Sector: c.Sector, Supplier: c.Supplier,
		DeliveryDate: c.DeliveryDate, Status: c.Status, Responsible: c.Responsible,
		Items: RequestItems{},
	}
	r.Items = append(r.Items, c.Items...)
	if len(c.CustomFields) > 0 {
		r.CustomFields = CustomFields{}
		for k, v := range c.CustomFields {
			r.CustomFields[k] = CustomValue{Raw: v}
		}
	}
	return r
}

func (t RequestItems) Value() (driver.Value, error) {
	if t == nil {
		t = RequestItems{}
	}
	jsonBytes, err := json.Marshal(&t)
	if err != nil {
		return nil, err
	}
	return string(jsonBytes), nil
}

func (t *RequestItems) Scan(v interface{}) error {
	return scanJSON(v, t)
}

func scanJSON(v interface{}, target interface{}) error {
	if v == nil {
		return nil
	}
	jsonString, ok := v.(string)
	if !ok {
		jsonByte, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("type is neither string nor []byte: %T %v", v, v)
		}
		jsonString = string(jsonByte)
	}
	if jsonString == "" {
		return nil
	}
	return json.Unmarshal([]byte(jsonString), target)
}
