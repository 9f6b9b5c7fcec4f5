// Package approval implements the staff activation workflow.
//
// Admin sign-ups start unapproved and are held at a dedicated holding page
// until a superadmin flips the approved flag. The holding page classifies
// the freshly resolved profile on every request, so approval takes effect on
// the next poll without a new sign-in. Approval state layers on the admin
// tier only; an unapproved admin still shops like any customer.
package approval
