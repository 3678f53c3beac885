package service

import "github.com/canteen-pos/api/internal/database"

// DeriveOrderStatus computes the order status visible to customers from its
// station tasks. Completed needs every task completed; Ready needs every
// task at least ready; any started or finished work short of that is
// Preparing.
func DeriveOrderStatus(tasks []database.StationTaskStatus) database.OrderStatus {
	if len(tasks) == 0 {
		return database.OrderStatusPENDING
	}

	var pending, completed, readyOrDone int
	for _, t := range tasks {
		switch t {
		case database.StationTaskStatusPENDING:
			pending++
		case database.StationTaskStatusREADY:
			readyOrDone++
		case database.StationTaskStatusCOMPLETED:
			completed++
			readyOrDone++
		}
	}

	switch {
	case completed == len(tasks):
		return database.OrderStatusCOMPLETED
	case readyOrDone == len(tasks):
		return database.OrderStatusREADY
	case pending == len(tasks):
		return database.OrderStatusPENDING
	default:
		return database.OrderStatusPREPARING
	}
}

// progressRank orders the statuses an order moves through while it is being
// prepared. Scheduled and Cancelled sit outside that progression.
func progressRank(s database.OrderStatus) int {
	switch s {
	case database.OrderStatusPENDING:
		return 0
	case database.OrderStatusPREPARING:
		return 1
	case database.OrderStatusREADY:
		return 2
	case database.OrderStatusCOMPLETED:
		return 3
	}
	return -1
}

// advances reports whether moving from current to next goes forward.
func advances(current, next database.OrderStatus) bool {
	c, n := progressRank(current), progressRank(next)
	return c >= 0 && n > c
}

func taskStatuses(tasks []database.StationTask) []database.StationTaskStatus {
	out := make([]database.StationTaskStatus, len(tasks))
	for i, t := range tasks {
		out[i] = t.Status
	}
	return out
}
