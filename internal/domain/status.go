package domain

// PrintStatus is the print_status column of an order row. It is the only
// durable coordination state: the dispatcher keeps nothing else between runs.
type PrintStatus string

const (
	StatusPendingPrint   PrintStatus = "pending_print"
	StatusPrinting       PrintStatus = "printing"
	StatusPrinted        PrintStatus = "printed"
	StatusReprintKitchen PrintStatus = "reprint_kitchen"
	StatusReprintCashier PrintStatus = "reprint_cashier"
	StatusReprintAll     PrintStatus = "reprint_all"
)

// ReprintStatuses are the operator triggers picked up by the reprint sweep.
var ReprintStatuses = []PrintStatus{StatusReprintKitchen, StatusReprintCashier, StatusReprintAll}

func (s PrintStatus) IsReprint() bool {
	switch s {
	case StatusReprintKitchen, StatusReprintCashier, StatusReprintAll:
		return true
	}
	return false
}

// Dispatchable reports whether an order in this status should be printed.
func (s PrintStatus) Dispatchable() bool {
	return s == StatusPendingPrint || s.IsReprint()
}

// Roles returns the ticket roles a status routes to, kitchen first.
func (s PrintStatus) Roles() []Role {
	switch s {
	case StatusPendingPrint, StatusReprintAll:
		return []Role{RoleKitchen, RoleCashier}
	case StatusReprintKitchen:
		return []Role{RoleKitchen}
	case StatusReprintCashier:
		return []Role{RoleCashier}
	}
	return nil
}

// ReprintFor maps an operator request ("kitchen", "cashier", "all") to the
// matching trigger status.
func ReprintFor(target string) (PrintStatus, bool) {
	switch target {
	case "kitchen":
		return StatusReprintKitchen, true
	case "cashier":
		return StatusReprintCashier, true
	case "all", "":
		return StatusReprintAll, true
	}
	return "", false
}

type Role string

const (
	RoleKitchen Role = "kitchen"
	RoleCashier Role = "cashier"
)

// Bindings maps each role to a printer device name. An empty name means the
// role is unbound and is skipped.
type Bindings struct {
	Kitchen string `json:"kitchen"`
	Cashier string `json:"cashier"`
}

func (b Bindings) Printer(r Role) string {
	switch r {
	case RoleKitchen:
		return b.Kitchen
	case RoleCashier:
		return b.Cashier
	}
	return ""
}

func (b Bindings) Empty() bool { return b.Kitchen == "" && b.Cashier == "" }
