package handlers

// Common user-facing error messages
const (
	// Generic errors
	ErrInternalServerError = "An unexpected error occurred. Please try again later."
	ErrBadRequest          = "Invalid request. Please check your input and try again."
	ErrNotFound            = "The page you requested does not exist."
	ErrCSRFFailed          = "Your form has expired. Reload the page and try again."

	// Authentication errors
	ErrUnauthorized       = "You must be logged in to perform this action."
	ErrInvalidCredentials = "Invalid username or password."
	ErrTooManySignIns     = "Too many failed sign-in attempts. Try again in a few minutes."
	ErrSessionExpired     = "Your session has expired. Please log in again."

	// Authorization errors
	ErrForbidden = "You don't have permission to perform this action."

	// Validation errors
	ErrValidationFailed = "Please correct the errors below and try again."

	// Registration errors
	ErrRegistrationClosed = "Registration is currently disabled."
	ErrMaxUsersReached    = "Maximum number of users reached."

	// Workspace errors
	ErrFolderNotFound     = "Folder not found."
	ErrFileNotFound       = "File not found."
	ErrFileMissing        = "The stored content of this file is missing."
	ErrUploadFailed       = "Failed to store the uploaded file."
	ErrConfigUpdateFailed = "Failed to save settings."
)

// Success messages
const (
	MsgAccountCreated = "Account created. You can now sign in."
	MsgSignedOut      = "You have been signed out."
	MsgFolderCreated  = "Folder created."
	MsgFolderDeleted  = "Folder deleted. Its files were moved to Unfiled."
	MsgFileUploaded   = "File uploaded."
	MsgFileDeleted    = "File deleted."
	MsgConfigSaved    = "Settings saved."
)
