package user

// User is the profile document of a signed-in person, stored under users/<Id>.
// Id is the auth provider's user id.
type User struct {
	Id          string `doc:"-"`
	DisplayName string `doc:"displayName"`
	Name        string `doc:"name"`
	Email       string `doc:"email"`
	PhotoUrl    string `doc:"photoUrl"`
}

// Label is the human name shown for the user: display name, then name, then email,
// then the raw id.
func (u User) Label() string {
	switch {
	case u.DisplayName != "":
		return u.DisplayName
	case u.Name != "":
		return u.Name
	case u.Email != "":
		return u.Email
	}
	return u.Id
}
