package moderation

import "github.com/Windi-Fikriyansyah/writers_market_be/internal/models"

// AttachmentVisible reports whether a non-staff party may see a.
func AttachmentVisible(a *models.JobAttachment) bool {
	return !a.DeletedAt.Valid && a.IsVisible
}

// MessageVisibleTo decides whether viewer can read m on job. The sender and
// staff always can; the job's client and freelancer only after approval and
// when the message was released to their side.
func MessageVisibleTo(m *models.Message, viewer models.Actor, job *models.Job) bool {
	if m.DeletedAt.Valid {
		return false
	}
	if m.SenderID == viewer.ID || viewer.IsStaff() {
		return true
	}
	if !m.AdminApproved {
		return false
	}
	if viewer.ID == job.ClientID {
		return m.VisibleToClient
	}
	if job.AssignedFreelancerID != nil && viewer.ID == *job.AssignedFreelancerID {
		return m.VisibleToFreelancer
	}
	return false
}
