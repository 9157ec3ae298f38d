package validation

// SignupForm is submitted to POST /signup.
type SignupForm struct {
	Username string `form:"username" json:"username" validate:"present,max=50"`
	Email    string `form:"email" json:"email" validate:"present,email,max=100"`
	Password string `form:"password" json:"password" validate:"min=6,maxbytes=72"`
	ImageURL string `form:"image_url" json:"image_url" validate:"omitempty,max=255"`
}

// LoginForm is submitted to POST /login and POST /api/token.
type LoginForm struct {
	Username string `form:"username" json:"username" validate:"present"`
	Password string `form:"password" json:"password" validate:"min=6,maxbytes=72"`
}

// ProfileForm is submitted to POST /users/profile. Password must match the
// stored hash before any other field is applied.
type ProfileForm struct {
	Username       string `form:"username" json:"username" validate:"omitempty,max=50"`
	Email          string `form:"email" json:"email" validate:"omitempty,email,max=100"`
	ImageURL       string `form:"image_url" json:"image_url" validate:"omitempty,max=255"`
	HeaderImageURL string `form:"header_image_url" json:"header_image_url" validate:"omitempty,max=255"`
	Bio            string `form:"bio" json:"bio"`
	Location       string `form:"location" json:"location" validate:"max=100"`
	Password       string `form:"password" json:"password" validate:"present,maxbytes=72"`
}

// MessageForm is submitted to POST /messages/new.
type MessageForm struct {
	Text string `form:"text" json:"text" validate:"present,max=140"`
}
