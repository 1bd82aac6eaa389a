package api

// User is one entry of /Users. Only the number of users is exported.
type User struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}
