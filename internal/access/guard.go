package access

import "github.com/coursekit/coursekit-go-api/internal/models"

// Decision is the outcome of evaluating a guard over course access state.
type Decision string

const (
	// DecisionLoading means not all inputs have arrived yet. Callers must not
	// render a forbidden outcome while data is merely loading.
	DecisionLoading Decision = "loading"
	// DecisionAllowed means the predicate over the resolved access holds.
	DecisionAllowed Decision = "allowed"
	// DecisionForbidden means access resolved but the predicate is false.
	DecisionForbidden Decision = "forbidden"
	// DecisionNotFound means the course lookup resolved to absent.
	DecisionNotFound Decision = "not-found"
)

// Predicate selects which capability gates a guarded view.
type Predicate func(CourseAccess) bool

// GuardInput carries the data a guard evaluation depends on. UserLoaded and
// CourseLoaded distinguish "absent" from "not fetched yet"; CourseMissing is
// set when the lookup completed and found nothing.
type GuardInput struct {
	UserLoaded    bool
	CourseLoaded  bool
	CourseMissing bool
	User          models.User
	Course        models.Course
	Enrollment    *models.Enrollment
}

// Evaluate recomputes a guard decision from its inputs. It is a pure
// recomputation, not a persistent machine: a fresh input can move the
// decision out of any state, including forbidden and not-found.
func Evaluate(in GuardInput, predicate Predicate) Decision {
	if in.CourseLoaded && in.CourseMissing {
		return DecisionNotFound
	}
	if !in.UserLoaded || !in.CourseLoaded {
		return DecisionLoading
	}
	if predicate == nil {
		predicate = func(CourseAccess) bool { return true }
	}
	if predicate(Resolve(in.User, in.Course, in.Enrollment)) {
		return DecisionAllowed
	}
	return DecisionForbidden
}
