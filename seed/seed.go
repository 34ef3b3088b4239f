// Package seed holds the default rows inserted into empty tables on first load.
package seed

import "procurement/domain"

func Users() []domain.Identity {
	return []domain.Identity{
		{ID: 1, Name: "Administrador", Email: "admin@empresa.com", Password: "admin123", Role: domain.RoleAdmin, Sector: "TI"},
		{ID: 2, Name: "John Doe", Email: "john@example.com", Password: "password", Role: domain.RoleUser, Sector: "RH"},
		{ID: 3, Name: "Jane Smith", Email: "jane@example.com", Password: "password", Role: domain.RoleUser, Sector: "Financeiro"},
	}
}

func Sectors() []domain.Sector {
	return []domain.Sector{
		{ID: "sector-1", Name: "TI", Description: "Tecnologia da Informação"},
		{ID: "sector-2", Name: "RH", Description: "Recursos Humanos"},
		{ID: "sector-3", Name: "Financeiro", Description: "Departamento Financeiro"},
	}
}

func Statuses() []domain.WorkflowStatus {
	return []domain.WorkflowStatus{
		{ID: "status-1", Name: domain.StatusPending, Color: domain.ColorYellow},
		{ID: "status-2", Name: domain.StatusInProgress, Color: domain.ColorBlue},
		{ID: "status-3", Name: domain.StatusAwaitingParts, Color: domain.ColorPurple},
		{ID: "status-4", Name: domain.StatusDelivered, Color: domain.ColorGreen},
		{ID: "status-5", Name: domain.StatusCancelled, Color: domain.ColorRed},
	}
}

// FormFields leaves IsVisibleInList unset, the load back-fill derives it like for legacy rows.
func FormFields() []domain.FormField {
	return []domain.FormField{
		{ID: domain.FieldOrderNumber, Label: "Nº do Pedido", Type: domain.FieldText, IsActive: true, Required: true, IsStandard: true},
		{ID: domain.FieldRequestDate, Label: "Data da Solicitação", Type: domain.FieldDate, IsActive: true, Required: true, IsStandard: true},
		{ID: domain.FieldSector, Label: "Setor", Type: domain.FieldSelect, IsActive: true, Required: true, IsStandard: true},
		{ID: domain.FieldSupplier, Label: "Fornecedor", Type: domain.FieldText, IsActive: true, Required: true, IsStandard: true},
		{ID: domain.FieldDeliveryDate, Label: "Previsão de Entrega", Type: domain.FieldDate, IsActive: true, Required: false, IsStandard: true},
		{ID: domain.FieldStatus, Label: "Status", Type: domain.FieldSelect, IsActive: true, Required: true, IsStandard: true},
		{ID: domain.FieldResponsible, Label: "Responsável", Type: domain.FieldSelect, IsActive: true, Required: true, IsStandard: true},
		{ID: "notes", Label: "Observações", Type: domain.FieldTextArea, IsActive: false, Required: false, IsStandard: false},
	}
}

func Requests() []domain.Request {
	return []domain.Request{
		{
			ID: 1, OrderNumber: "PED-001", RequestDate: "2023-10-01", Sector: "TI", Supplier: "Fornecedor A",
			DeliveryDate: "2023-10-10", Status: domain.StatusDelivered, Responsible: "Administrador",
			Items: domain.RequestItems{
				{ID: "item-1", Name: "Mouse Gamer", Quantity: 5, Status: domain.StatusDelivered},
				{ID: "item-2", Name: "Teclado Mecânico", Quantity: 5, Status: domain.StatusDelivered},
			},
			CustomFields: domain.CustomFields{"notes": domain.Text("Urgente")},
		},
		{
			ID: 2, OrderNumber: "PED-002", RequestDate: "2023-10-02", Sector: "RH", Supplier: "Fornecedor B",
			DeliveryDate: "2023-10-15", Status: domain.StatusInProgress, Responsible: "John Doe",
			Items: domain.RequestItems{
				{ID: "item-3", Name: "Cadeira de Escritório", Quantity: 2, Status: domain.StatusInProgress},
			},
		},
		{
			ID: 3, OrderNumber: "PED-003", RequestDate: "2023-10-03", Sector: "Financeiro", Supplier: "Fornecedor C",
			DeliveryDate: "2023-10-20", Status: domain.StatusPending, Responsible: "Jane Smith",
			Items: domain.RequestItems{
				{ID: "item-4", Name: "Calculadora HP 12C", Quantity: 10, Status: domain.StatusPending},
			},
			CustomFields: domain.CustomFields{"notes": domain.Text("Compra para o time novo.")},
		},
	}
}
