// Package mocks provides gomock implementations of the InsecMed core ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	jobs := mocks.NewMockJobRepository(ctrl)
//	jobs.EXPECT().Create(gomock.Any(), gomock.Any()).Return(job, nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=job_repository_mock.go github.com/UPI05/InsecMed/internal/core JobRepository
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=record_repository_mock.go github.com/UPI05/InsecMed/internal/core RecordRepository
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=patient_repository_mock.go github.com/UPI05/InsecMed/internal/core PatientRepository
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=pipeline_mock.go github.com/UPI05/InsecMed/internal/core InferenceClient,ExplainClient,ArtifactStore
