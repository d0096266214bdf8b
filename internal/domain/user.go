package domain

const (
	RoleBuyer  = "BUYER"
	RoleSeller = "SELLER"
	RoleAdmin  = "ADMIN"
)

type User struct {
	ID    string `db:"id"`
	Email string `db:"email"`
	Name  string `db:"name"`
	Hash  string `db:"password_hash"`
	Role  string `db:"role"`
}

// SeesFeeInclusive reports whether prices shown to this role carry the
// platform service fee. Anonymous browsers (empty role) are treated as
// buyers.
func SeesFeeInclusive(role string) bool {
	return role == "" || role == RoleBuyer
}
