package inno

import (
	"github.com/pcamen/innodump/internal/binio"
)

// Condition holds the install-time predicates shared by most entry kinds:
// which components, tasks and languages select the entry, plus Pascal
// script hooks. Fields were introduced gradually; absent fields stay empty.
type Condition struct {
	Components string
	Tasks      string
	Languages  string
	Check      string

	AfterInstall  string
	BeforeInstall string
}

func (c *Condition) load(r *binio.Reader, v Version) {
	if v.AtLeast(Ver(2, 0, 0)) {
		c.Components = LoadString(r, v)
		c.Tasks = LoadString(r, v)
	}
	if v.AtLeast(Ver(4, 0, 1)) {
		c.Languages = LoadString(r, v)
	}
	if v.AtLeast(Ver(4, 0, 0)) {
		c.Check = LoadString(r, v)
	}
	if v.AtLeast(Ver(4, 1, 0)) {
		c.AfterInstall = LoadString(r, v)
		c.BeforeInstall = LoadString(r, v)
	}
}
