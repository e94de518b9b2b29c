package service

import "errors"

var (
	ErrValidation            = errors.New("invalid input")
	ErrIncompleteBatch       = errors.New("an error occurred while uploading your images")
	ErrConsensusMismatch     = errors.New("license number on both sides of the car must be clear and match")
	ErrDuplicateRegistration = errors.New("ooops! it seems like this car has been previously registered")
	ErrUnauthorized          = errors.New("only the car owner can update this car")
	ErrNotFound              = errors.New("car not found")
	ErrUnavailable           = errors.New("this car is no longer available")
	ErrPlateMismatch         = errors.New("you cannot update a different car")
	ErrDuplicateRequest      = errors.New("it appears this request already exists")
	ErrRequestNotFound       = errors.New("it appears this request does not exist")
	ErrRequestClosed         = errors.New("a closed request cannot be updated")
	ErrRequestForbidden      = errors.New("you are not authorized to update this request")
	ErrUpstream              = errors.New("image service failed")
	ErrStorage               = errors.New("storage failure")
)
