package domain

const (
	RoleAdmin = Role("admin")
	RoleUser  = Role("user")

	NoSector = "Nenhum"

	TableUsers   = "users"
	TableSectors = "sectors"
)

type Role string

// Identity is a row of the users table. Password holds the plaintext credential
// the backend compares against, it is never part of a session.
type Identity struct {
	ID       int64  `json:"id" gorm:"column:id;primary_key;auto_increment:false"`
	Name     string `json:"name" gorm:"column:name"`
	Email    string `json:"email" gorm:"column:email"`
	Password string `json:"password,omitempty" gorm:"column:password"`
	Role     Role   `json:"role" gorm:"column:role"`
	Sector   string `json:"sector" gorm:"column:sector"`
}

func (Identity) TableName() string {
	return TableUsers
}

func (i Identity) Key() int64 {
	return i.ID
}

// Stripped returns a copy without the credential.
func (i Identity) Stripped() Identity {
	i.Password = ""
	return i
}

func (i Identity) IsPrivileged() bool {
	return i.Role == RoleAdmin
}

type IdentityCreation struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Role     Role   `json:"role" binding:"omitempty,oneof=admin user"`
	Sector   string `json:"sector"`
}

func (c IdentityCreation) Identity() Identity {
	i := Identity{Name: c.Name, Email: c.Email, Password: c.Password, Role: c.Role, Sector: c.Sector}
	if i.Role == "" {
		i.Role = RoleUser
	}
	if i.Sector == "" {
		i.Sector = NoSector
	}
	return i
}

type Sector struct {
	ID          string `json:"id" gorm:"column:id;primary_key"`
	Name        string `json:"name" gorm:"column:name"`
	Description string `json:"description" gorm:"column:description"`
}

func (Sector) TableName() string {
	return TableSectors
}

func (s Sector) Key() string {
	return s.ID
}

type SectorCreation struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}
