package entity

import "time"

// User represents an account row in the `users` table.
// Handle is stored lower-cased; the column is CITEXT as well.
type User struct {
	ID                int64      `db:"id"`
	Handle            string     `db:"handle"`
	PasswordHash      string     `db:"password_hash"`
	PasswordAlgo      string     `db:"password_algo"`
	PasswordUpdatedAt *time.Time `db:"password_updated_at"`
	CreatedAt         time.Time  `db:"created_at"`
}

// PublicView is what the API returns about a user.
type PublicView struct {
	ID        int64     `json:"id,string"`
	Handle    string    `json:"handle"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) Public() PublicView {
	return PublicView{ID: u.ID, Handle: u.Handle, CreatedAt: u.CreatedAt}
}
