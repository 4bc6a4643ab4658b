package model

import (
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleStaff Role = "staff"
)

type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

type Book struct {
	ID        string `json:"id" db:"id"`
	Title     string `json:"title" db:"title"`
	Author    string `json:"author" db:"author"`
	ISBN      string `json:"isbn" db:"isbn"`
	SchoolID  string `json:"schoolId" db:"school_id"`
	Quantity  int    `json:"quantity" db:"quantity"`
	Available int    `json:"available" db:"available"`
}

// BookInput is what staff submit when adding or editing a book.
// Available is never part of it: it is derived from Quantity and the open loans.
type BookInput struct {
	Title    string `json:"title" validate:"required,notblank"`
	Author   string `json:"author" validate:"required,notblank"`
	ISBN     string `json:"isbn" validate:"required,notblank"`
	Quantity int    `json:"quantity" validate:"min=0"`
}

type Request struct {
	ID        string        `json:"id" db:"id"`
	UserID    string        `json:"userId" db:"user_id"`
	BookID    string        `json:"bookId" db:"book_id"`
	SchoolID  string        `json:"schoolId" db:"school_id"`
	Status    RequestStatus `json:"status" db:"status"`
	CreatedAt time.Time     `json:"createdAt" db:"created_at"`
}

type Loan struct {
	ID         string     `json:"id" db:"id"`
	UserID     string     `json:"userId" db:"user_id"`
	BookID     string     `json:"bookId" db:"book_id"`
	SchoolID   string     `json:"schoolId" db:"school_id"`
	StartDate  time.Time  `json:"startDate" db:"start_date"`
	DueDate    *time.Time `json:"dueDate" db:"due_date"`
	ReturnedAt *time.Time `json:"returnedAt" db:"returned_at"`
}

// Open reports whether the copy is still out.
func (l Loan) Open() bool {
	return l.ReturnedAt == nil
}

type Membership struct {
	UserID    string    `json:"userId" db:"user_id"`
	SchoolID  string    `json:"schoolId" db:"school_id"`
	Role      Role      `json:"role" db:"role"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type User struct {
	ID        string    `json:"uid" db:"id"`
	Name      string    `json:"name" db:"name"`
	Surname   string    `json:"surname" db:"surname"`
	Grade     string    `json:"grade" db:"grade"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type RegisterUserRequest struct {
	Name    string `json:"name" validate:"required,notblank"`
	Surname string `json:"surname" validate:"required,notblank"`
	Grade   string `json:"grade"`
	Email   string `json:"email" validate:"omitempty,email"`
}

// Identity is the caller of an engine operation: an opaque user id from the
// identity provider plus the membership stored for the active school.
type Identity struct {
	UserID     string
	Membership Membership
}

func (i Identity) SchoolID() string {
	return i.Membership.SchoolID
}

func (i Identity) Is(role Role) bool {
	return i.Membership.Role == role
}

type Collection string

const (
	CollectionBooks    Collection = "books"
	CollectionRequests Collection = "requests"
	CollectionLoans    Collection = "loans"
)

// Change notifies subscribers that a document of a collection was written.
// It carries no payload: receivers refetch, so re-delivery is harmless.
type Change struct {
	Collection Collection `json:"collection"`
	ID         string     `json:"id"`
	SchoolID   string     `json:"schoolId"`
}

type RequestFilter struct {
	SchoolID string
	UserID   string
	Status   RequestStatus
}

type LoanFilter struct {
	SchoolID string
	UserID   string
	BookID   string
	OnlyOpen bool
}

type BookMetadata struct {
	ISBN    string `json:"isbn"`
	Title   string `json:"title"`
	Authors string `json:"authors"`
}

type DueDateRequest struct {
	DueDate *Date `json:"dueDate"`
}

// Date is a calendar day encoded as YYYY-MM-DD.
type Date struct {
	time.Time `json:",inline"`
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	date, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return err
	}
	d.Time = date
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(time.DateOnly) + `"`), nil
}

type SchoolStats struct {
	SchoolID    string    `json:"schoolId" db:"school_id"`
	Submitted   int       `json:"submitted" db:"submitted"`
	Approved    int       `json:"approved" db:"approved"`
	Rejected    int       `json:"rejected" db:"rejected"`
	Returned    int       `json:"returned" db:"returned"`
	LastUpdated time.Time `json:"lastUpdated" db:"last_updated"`
}
