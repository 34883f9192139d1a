package jobs

import "github.com/Windi-Fikriyansyah/writers_market_be/internal/models"

var transitions = map[models.JobStatus][]models.JobStatus{
	models.JobStatusPending:    {models.JobStatusApproved, models.JobStatusCancelled, models.JobStatusOnHold},
	models.JobStatusApproved:   {models.JobStatusAssigned, models.JobStatusCancelled, models.JobStatusOnHold},
	models.JobStatusAssigned:   {models.JobStatusInProgress, models.JobStatusCancelled, models.JobStatusOnHold},
	models.JobStatusInProgress: {models.JobStatusEditing, models.JobStatusDelivered, models.JobStatusCancelled, models.JobStatusOnHold},
	models.JobStatusEditing:    {models.JobStatusDelivered, models.JobStatusInProgress},
	models.JobStatusDelivered:  {models.JobStatusRevision, models.JobStatusPaid, models.JobStatusCompleted},
	models.JobStatusRevision:   {models.JobStatusInProgress, models.JobStatusDelivered},
	models.JobStatusPaid:       {models.JobStatusAssigned, models.JobStatusInProgress, models.JobStatusCompleted},
	models.JobStatusOnHold:     {models.JobStatusApproved, models.JobStatusAssigned, models.JobStatusInProgress, models.JobStatusCancelled},
	models.JobStatusCompleted:  nil,
	models.JobStatusCancelled:  nil,
}

// CanMove reports whether the job status table allows from -> to.
func CanMove(from, to models.JobStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Next lists the statuses reachable from s.
func Next(s models.JobStatus) []models.JobStatus {
	return append([]models.JobStatus(nil), transitions[s]...)
}

// MayMove reports whether actor is allowed to request from -> to on job.
// It assumes CanMove(from, to) already holds.
func MayMove(actor models.Actor, job *models.Job, from, to models.JobStatus) bool {
	if actor.IsStaff() {
		return true
	}
	switch actor.Role {
	case models.RoleClient:
		if job.ClientID != actor.ID {
			return false
		}
		switch to {
		case models.JobStatusCancelled:
			return from == models.JobStatusPending
		case models.JobStatusRevision, models.JobStatusCompleted:
			return true
		}
	case models.RoleFreelancer:
		if job.AssignedFreelancerID == nil || *job.AssignedFreelancerID != actor.ID {
			return false
		}
		switch to {
		case models.JobStatusInProgress, models.JobStatusEditing, models.JobStatusDelivered:
			return true
		}
	case models.RoleEditor:
		return from == models.JobStatusEditing
	}
	return false
}
