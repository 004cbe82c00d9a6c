package httpx

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"time"

	domainauth "github.com/UPI05/InsecMed/internal/domain/auth"
	"github.com/UPI05/InsecMed/internal/domain/model"
	"github.com/UPI05/InsecMed/internal/service"
)

const (
	doctorSession = "doctor-session"
	guestSession  = "guest-session"
)

// fakeAuth serves fixed sessions keyed by id.
type fakeAuth struct {
	sessions      map[string]*domainauth.Session
	beginErr      error
	completeErr   error
	completeInput service.CompleteLoginInput
	loggedOut     []string
}

func newFakeAuth() *fakeAuth {
	exp := time.Now().Add(time.Hour)
	return &fakeAuth{sessions: map[string]*domainauth.Session{
		doctorSession: {
			ID: doctorSession, UserID: "u-1", Email: "Doctor@Example.com",
			Role: domainauth.RoleUser, ExpiresAt: exp,
		},
		guestSession: {
			ID: guestSession, UserID: "guest", Role: domainauth.RoleGuest, ExpiresAt: exp,
		},
	}}
}

func (f *fakeAuth) BeginLogin(_ context.Context, redirectURL string) (*service.BeginLoginResult, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return &service.BeginLoginResult{
		AuthURL: "https://idp.example.com/authorize?redirect=" + redirectURL,
		State:   "test-state",
		Nonce:   "test-nonce",
	}, nil
}

func (f *fakeAuth) CompleteLogin(_ context.Context, in service.CompleteLoginInput) (*domainauth.Session, error) {
	f.completeInput = in
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	return f.sessions[doctorSession], nil
}

func (f *fakeAuth) GetSession(_ context.Context, id string) (*domainauth.Session, error) {
	if s, ok := f.sessions[id]; ok {
		return s, nil
	}
	return nil, errors.New("session not found")
}

func (f *fakeAuth) Logout(_ context.Context, id string) error {
	f.loggedOut = append(f.loggedOut, id)
	return nil
}

type fakeDispatcher struct {
	diagnosis  service.DiagnosisSubmission
	qa         service.QASubmission
	uploadBody string
	submitErr  error
	status     *model.HandleStatus
	statusErr  error
}

func (f *fakeDispatcher) SubmitDiagnosis(_ context.Context, in service.DiagnosisSubmission) (*model.SubmitResponse, error) {
	f.diagnosis = in
	if in.Upload.Body != nil {
		b, _ := io.ReadAll(in.Upload.Body)
		f.uploadBody = string(b)
	}
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &model.SubmitResponse{Handle: "h-1", Status: model.HandleStateQueued}, nil
}

func (f *fakeDispatcher) SubmitQA(_ context.Context, in service.QASubmission) (*model.SubmitResponse, error) {
	f.qa = in
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &model.SubmitResponse{Handle: "h-2", Status: model.HandleStateQueued}, nil
}

func (f *fakeDispatcher) Status(_ context.Context, handle string) (*model.HandleStatus, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	st := *f.status
	st.Handle = handle
	return &st, nil
}

type fakeRecords struct {
	history     *service.History
	opts        model.RecordListOptions
	kind        model.RecordKind
	caller      string
	record      *model.Record
	err         error
	subject     string
	artifact    io.ReadSeekCloser
	artifactMod time.Time
}

func (f *fakeRecords) History(
	_ context.Context,
	kind model.RecordKind,
	owner string,
	opts model.RecordListOptions,
) (*service.History, error) {
	f.kind, f.caller, f.opts = kind, owner, opts
	return f.history, f.err
}

func (f *fakeRecords) Get(_ context.Context, kind model.RecordKind, _, caller string) (*model.Record, error) {
	f.kind, f.caller = kind, caller
	return f.record, f.err
}

func (f *fakeRecords) UpdateSubject(_ context.Context, kind model.RecordKind, _, owner, raw string) (*model.Record, error) {
	f.kind, f.caller, f.subject = kind, owner, raw
	return f.record, f.err
}

func (f *fakeRecords) OpenArtifact(_ context.Context, _, caller string) (io.ReadSeekCloser, fs.FileInfo, error) {
	f.caller = caller
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.artifact, fakeFileInfo{mod: f.artifactMod}, nil
}

type fakeFileInfo struct {
	fs.FileInfo
	mod time.Time
}

func (i fakeFileInfo) ModTime() time.Time { return i.mod }

type fakeSharer struct {
	to            string
	accept        *bool
	filter        model.SharedFilter
	record        *model.Record
	err           error
	notifications []service.Notification
}

func (f *fakeSharer) Initiate(_ context.Context, _ model.RecordKind, _, _, to string) (*model.Record, error) {
	f.to = to
	return f.record, f.err
}

func (f *fakeSharer) Respond(_ context.Context, _ model.RecordKind, _, _ string, accept bool) (*model.Record, error) {
	f.accept = &accept
	return f.record, f.err
}

func (f *fakeSharer) Notifications(context.Context, string) ([]service.Notification, error) {
	return f.notifications, f.err
}

func (f *fakeSharer) SharedWithMe(_ context.Context, _ string, filter model.SharedFilter) ([]*model.Record, error) {
	f.filter = filter
	return nil, f.err
}

type fakePatients struct {
	creator string
	created model.CreatePatientRequest
	err     error
}

func (f *fakePatients) Create(_ context.Context, creator string, req model.CreatePatientRequest) (*model.Patient, error) {
	f.creator, f.created = creator, req
	if f.err != nil {
		return nil, f.err
	}
	return &model.Patient{ID: "p-1", Name: req.Name, CreatorID: creator}, nil
}

func (f *fakePatients) Get(_ context.Context, creator, id string) (*model.Patient, error) {
	f.creator = creator
	if f.err != nil {
		return nil, f.err
	}
	return &model.Patient{ID: id, CreatorID: creator}, nil
}

func (f *fakePatients) List(_ context.Context, creator string, _, _ int) ([]*model.Patient, error) {
	f.creator = creator
	return nil, f.err
}

func (f *fakePatients) Update(_ context.Context, creator, id string, _ model.UpdatePatientRequest) (*model.Patient, error) {
	f.creator = creator
	if f.err != nil {
		return nil, f.err
	}
	return &model.Patient{ID: id, CreatorID: creator}, nil
}

func (f *fakePatients) Delete(_ context.Context, creator, _ string) error {
	f.creator = creator
	return f.err
}

type testServer struct {
	auth     *fakeAuth
	dispatch *fakeDispatcher
	records  *fakeRecords
	sharing  *fakeSharer
	patients *fakePatients
	handler  http.Handler
}

func newTestServer() *testServer {
	ts := &testServer{
		auth:     newFakeAuth(),
		dispatch: &fakeDispatcher{},
		records:  &fakeRecords{},
		sharing:  &fakeSharer{},
		patients: &fakePatients{},
	}
	ts.handler = NewRouter(RouterServices{
		Dispatch:       ts.dispatch,
		Records:        ts.records,
		Sharing:        ts.sharing,
		Patients:       ts.patients,
		Auth:           ts.auth,
		MaxUploadBytes: 1 << 16,
	})
	return ts
}

func withSession(r *http.Request, id string) *http.Request {
	r.AddCookie(&http.Cookie{Name: DefaultSessionCookie, Value: id})
	return r
}
