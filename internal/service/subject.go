package service

import (
	"context"
	"time"

	"github.com/bagiro44/baby-tracker/internal"
	"github.com/bagiro44/baby-tracker/internal/storage"
)

type SubjectRequest struct {
	Name      string    `json:"name" validate:"required,max=100"`
	BirthDate time.Time `json:"birth_date" validate:"required"`
	Gender    string    `json:"gender,omitempty" validate:"omitempty,oneof=male female unknown"`
}

func ValidateSubjectRequest(req *SubjectRequest) error {
	return validate.Struct(req)
}

func CreateSubject(ctx context.Context, repo storage.SubjectRepository, req *SubjectRequest) (*internal.Subject, error) {
	gender := internal.Gender(req.Gender)
	if gender == "" {
		gender = internal.GenderUnknown
	}
	sub := &internal.Subject{
		Name:      req.Name,
		BirthDate: req.BirthDate,
		Gender:    gender,
	}
	if err := repo.CreateSubject(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// CurrentSubject returns the oldest subject: the usual single-child
// case where callers do not pass an explicit id.
func CurrentSubject(ctx context.Context, repo storage.SubjectRepository) (*internal.Subject, error) {
	subjects, err := repo.ListSubjects(ctx)
	if err != nil {
		return nil, err
	}
	if len(subjects) == 0 {
		return nil, internal.ErrNotFound
	}
	return &subjects[0], nil
}

func UpdateGender(ctx context.Context, repo storage.SubjectRepository, id int64, gender internal.Gender) error {
	switch gender {
	case internal.GenderMale, internal.GenderFemale, internal.GenderUnknown:
	default:
		return internal.ErrInvalidInput
	}
	return repo.UpdateGender(ctx, id, gender)
}
