package domain

const (
	TableStatuses = "statuses"

	ColorYellow = "yellow"
	ColorBlue   = "blue"
	ColorPurple = "purple"
	ColorGreen  = "green"
	ColorRed    = "red"
	// ColorGray renders statuses whose name matches no definition.
	ColorGray = "gray"

	StatusPending       = "Pendente"
	StatusInProgress    = "Em Andamento"
	StatusAwaitingParts = "Aguardando Peças"
	StatusDelivered     = "Entregue"
	StatusCancelled     = "Cancelado"
)

// WorkflowStatus is referenced by requests and items through its name.
type WorkflowStatus struct {
	ID    string `json:"id" gorm:"column:id;primary_key"`
	Name  string `json:"name" gorm:"column:name"`
	Color string `json:"color" gorm:"column:color"`
}

func (WorkflowStatus) TableName() string {
	return TableStatuses
}

func (s WorkflowStatus) Key() string {
	return s.ID
}

type StatusCreation struct {
	Name  string `json:"name" binding:"required"`
	Color string `json:"color" binding:"required,oneof=yellow blue purple green red gray"`
}

func StatusColor(statuses []WorkflowStatus, name string) string {
	for _, s := range statuses {
		if s.Name == name && s.Color != "" {
			return s.Color
		}
	}
	return ColorGray
}
