package rbac

const (
	PermExamView      = "exam:view"
	PermExamCreate    = "exam:create"
	PermAttemptCreate = "attempt:create"
	PermAttemptSave   = "attempt:save"
	PermAttemptSubmit = "attempt:submit"
	PermViewOwn       = "attempt:view-own"
	PermViewAll       = "attempt:view-all"
	PermGrade         = "attempt:grade"
	PermRosterWrite   = "roster:write"
)

// Default policy. Staff are the roles holding attempt:view-all.
var DefaultPolicy = Policy{
	"student": {
		PermExamView,
		PermAttemptCreate,
		PermAttemptSave,
		PermAttemptSubmit,
		PermViewOwn,
	},
	"teacher": {
		PermExamCreate,
		PermExamView,
		PermViewAll,
		PermGrade,
		PermRosterWrite,
	},
	"admin": {
		"*", // everything
	},
}
