package products

import (
	"net/http"

	"github.com/EmpoweredVote/EV-Accounts/internal/utils"
)

type Eligibility struct {
	Eligible bool `json:"eligible"`
	Age      int  `json:"age"`
}

// EligibilityHandler reports the age AdultOnly computed for the caller.
func EligibilityHandler(w http.ResponseWriter, r *http.Request) {
	age, ok := utils.GetAgeFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusInternalServerError, "age gate did not run")
		return
	}
	utils.WriteJSON(w, http.StatusOK, Eligibility{Eligible: true, Age: age})
}
