package middleware

import "github.com/gofiber/fiber/v2"

// Role names carried in JWT claims and checked by RequireRole.
const (
	RoleStudent      = "student"
	RoleTutor        = "tutor"
	RoleFacultyAdmin = "faculty_admin"
	RoleAdmin        = "admin"
)

// CurrentUserID returns the authenticated user's id set by JWTProtected,
// or false when the request carries no usable subject.
func CurrentUserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals("user_id").(uint)
	return id, ok
}

// CurrentRole returns the normalized role set by JWTProtected.
func CurrentRole(c *fiber.Ctx) string {
	role, _ := c.Locals("user_role").(string)
	return role
}
