package services

// Services defined in this package:
// - SubmissionService: submitting work, public consultation and grading with an edit code
// - AuthService: student registration, login and session handling
