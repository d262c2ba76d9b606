package authority

import (
	"testing"

	. "github.com/onsi/gomega"
)

func TestPermissionsHasRole(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should match role case insensitively", func(t *testing.T) {
		perms := Permissions{"manager", "system:admin"}
		Expect(perms.HasRole("manager")).To(BeTrue())
		Expect(perms.HasRole("Manager")).To(BeTrue())
		Expect(perms.HasRole("director")).To(BeFalse())
		Expect(Permissions{}.HasRole("manager")).To(BeFalse())
		Expect(Permissions(nil).HasRole("manager")).To(BeFalse())
	})
}

func TestPermissionsHasAnyRole(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should match when any role is held", func(t *testing.T) {
		perms := Permissions{"manager"}
		Expect(perms.HasAnyRole("director", "manager")).To(BeTrue())
		Expect(perms.HasAnyRole("director", "auditor")).To(BeFalse())
		Expect(perms.HasAnyRole()).To(BeFalse())
	})
}

func TestPermissionsHasSystemRole(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should match roles with system prefix", func(t *testing.T) {
		Expect(Permissions{"system:admin"}.HasSystemRole()).To(BeTrue())
		Expect(Permissions{"SYSTEM:admin"}.HasSystemRole()).To(BeTrue())
		Expect(Permissions{"manager"}.HasSystemRole()).To(BeFalse())
		Expect(Permissions{}.HasSystemRole()).To(BeFalse())
	})
}
