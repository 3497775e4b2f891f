package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tutordesk/backend/internal/domain"
	"github.com/tutordesk/backend/internal/models"
	"github.com/tutordesk/backend/internal/repository"
)

// memDB is an in-memory stand-in for the Postgres schema. WithinTx restores
// the previous state when the callback fails.
type memDB struct {
	mu       sync.Mutex
	users    map[uuid.UUID]models.User
	teachers map[uuid.UUID]models.Teacher
	students map[uuid.UUID]models.Student
	sessions map[uuid.UUID]models.Session
	payments map[uuid.UUID]models.Payment
	commits  int
	// userLocks counts LockForBootstrap calls; unlockedCounts counts user
	// counts taken without one.
	userLocks      int
	unlockedCounts int
}

func newMemDB() *memDB {
	return &memDB{
		users:    map[uuid.UUID]models.User{},
		teachers: map[uuid.UUID]models.Teacher{},
		students: map[uuid.UUID]models.Student{},
		sessions: map[uuid.UUID]models.Session{},
		payments: map[uuid.UUID]models.Payment{},
	}
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (db *memDB) Stores() Stores {
	return Stores{
		Sessions: memSessions{db},
		Payments: memPayments{db},
		Students: memStudents{db},
		Teachers: memTeachers{db},
		Users:    memUsers{db},
	}
}

func (db *memDB) WithinTx(_ context.Context, fn func(Stores) error) error {
	db.mu.Lock()
	users := cloneMap(db.users)
	teachers := cloneMap(db.teachers)
	students := cloneMap(db.students)
	sessions := cloneMap(db.sessions)
	payments := cloneMap(db.payments)
	db.mu.Unlock()

	if err := fn(db.Stores()); err != nil {
		db.mu.Lock()
		db.users, db.teachers, db.students, db.sessions, db.payments = users, teachers, students, sessions, payments
		db.mu.Unlock()
		return err
	}
	db.mu.Lock()
	db.commits++
	db.mu.Unlock()
	return nil
}

func foreignKeyError() error {
	return &pgconn.PgError{Code: pgForeignKeyViolation}
}

func (db *memDB) addUser(name string, role models.Role) models.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	user := models.User{
		ID:        uuid.New(),
		Name:      name,
		Email:     strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		Role:      role,
		CreatedAt: time.Now(),
	}
	db.users[user.ID] = user
	if role == models.RoleTeacher {
		db.teachers[user.ID] = models.Teacher{ID: user.ID, Name: user.Name, Email: user.Email, CreatedAt: user.CreatedAt}
	}
	return user
}

func (db *memDB) addStudent(name string) models.Student {
	db.mu.Lock()
	defer db.mu.Unlock()
	student := models.Student{ID: uuid.New(), Name: name, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	db.students[student.ID] = student
	return student
}

func (db *memDB) addSession(session models.Session) models.Session {
	db.mu.Lock()
	defer db.mu.Unlock()
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.Status == "" {
		session.Status = models.SessionScheduled
	}
	if session.PaymentStatus == "" {
		session.PaymentStatus = models.PaymentPending
	}
	if session.Version == 0 {
		session.Version = 1
	}
	db.sessions[session.ID] = session
	return db.withNames(session)
}

func (db *memDB) session(id uuid.UUID) models.Session {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.withNames(db.sessions[id])
}

func (db *memDB) sessionPayments(id uuid.UUID) []models.Payment {
	payments, _ := memPayments{db}.ListBySession(context.Background(), id)
	return payments
}

func (db *memDB) withNames(session models.Session) models.Session {
	session.TeacherName = db.users[session.TeacherID].Name
	session.StudentName = db.students[session.StudentID].Name
	return session
}

type memSessions struct{ db *memDB }

func (s memSessions) GetByID(_ context.Context, id uuid.UUID) (*models.Session, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	session, ok := s.db.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	session = s.db.withNames(session)
	return &session, nil
}

func (s memSessions) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	return s.GetByID(ctx, id)
}

func (s memSessions) matching(filter repository.SessionListFilter) []models.Session {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	sessions := make([]models.Session, 0)
	for _, session := range s.db.sessions {
		switch {
		case filter.TeacherID != nil && session.TeacherID != *filter.TeacherID:
		case filter.StudentID != nil && session.StudentID != *filter.StudentID:
		case filter.Status != "" && string(session.Status) != filter.Status:
		case filter.PaymentStatus != "" && string(session.PaymentStatus) != filter.PaymentStatus:
		case filter.From != "" && session.Date < filter.From:
		case filter.To != "" && session.Date > filter.To:
		default:
			sessions = append(sessions, s.db.withNames(session))
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].Date != sessions[j].Date {
			return sessions[i].Date < sessions[j].Date
		}
		return sessions[i].StartTime < sessions[j].StartTime
	})
	return sessions
}

func (s memSessions) List(_ context.Context, filter repository.SessionListFilter) ([]models.Session, error) {
	sessions := s.matching(filter)
	if filter.Offset >= len(sessions) {
		return []models.Session{}, nil
	}
	sessions = sessions[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(sessions) {
		sessions = sessions[:filter.Limit]
	}
	return sessions, nil
}

func (s memSessions) Count(_ context.Context, filter repository.SessionListFilter) (int, error) {
	return len(s.matching(filter)), nil
}

func (s memSessions) Create(_ context.Context, input repository.CreateSessionInput) (*models.Session, error) {
	s.db.mu.Lock()
	if _, ok := s.db.teachers[input.TeacherID]; !ok {
		s.db.mu.Unlock()
		return nil, foreignKeyError()
	}
	s.db.mu.Unlock()
	session := s.db.addSession(models.Session{
		Date:           input.Date,
		StartTime:      input.StartTime,
		EndTime:        input.EndTime,
		TeacherID:      input.TeacherID,
		StudentID:      input.StudentID,
		ExpectedAmount: input.ExpectedAmount,
		Notes:          input.Notes,
	})
	return &session, nil
}

func (s memSessions) UpdateIfVersion(_ context.Context, session *models.Session) (*models.Session, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	stored, ok := s.db.sessions[session.ID]
	if !ok || stored.Version != session.Version {
		return nil, pgx.ErrNoRows
	}
	next := *session
	next.Version++
	s.db.sessions[next.ID] = next
	next = s.db.withNames(next)
	return &next, nil
}

func (s memSessions) UpdatePaymentStatus(_ context.Context, id uuid.UUID, status models.PaymentStatus) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	session, ok := s.db.sessions[id]
	if !ok {
		return pgx.ErrNoRows
	}
	session.PaymentStatus = status
	session.Version++
	s.db.sessions[id] = session
	return nil
}

func (s memSessions) Delete(_ context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.sessions[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(s.db.sessions, id)
	for paymentID, payment := range s.db.payments {
		if payment.SessionID == id {
			delete(s.db.payments, paymentID)
		}
	}
	return nil
}

type memPayments struct{ db *memDB }

func (p memPayments) GetByID(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	p.db.mu.Lock()
	defer p.db.mu.Unlock()
	payment, ok := p.db.payments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &payment, nil
}

func (p memPayments) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Payment, error) {
	return p.List(ctx, repository.PaymentListFilter{SessionID: &sessionID})
}

func (p memPayments) List(_ context.Context, filter repository.PaymentListFilter) ([]models.Payment, error) {
	p.db.mu.Lock()
	defer p.db.mu.Unlock()
	payments := make([]models.Payment, 0)
	for _, payment := range p.db.payments {
		session := p.db.sessions[payment.SessionID]
		switch {
		case filter.TeacherID != nil && session.TeacherID != *filter.TeacherID:
		case filter.SessionID != nil && payment.SessionID != *filter.SessionID:
		case filter.Method != "" && string(payment.Method) != filter.Method:
		case filter.From != "" && payment.Date < filter.From:
		case filter.To != "" && payment.Date > filter.To:
		case filter.Search != "" && !p.db.paymentMatches(session, payment, filter.Search):
		default:
			payments = append(payments, payment)
		}
	}
	sort.Slice(payments, func(i, j int) bool {
		if payments[i].Date != payments[j].Date {
			return payments[i].Date > payments[j].Date
		}
		return payments[i].CreatedAt.After(payments[j].CreatedAt)
	})
	return payments, nil
}

func (db *memDB) paymentMatches(session models.Session, payment models.Payment, search string) bool {
	needle := strings.ToLower(strings.TrimSpace(search))
	return strings.Contains(strings.ToLower(db.users[session.TeacherID].Name), needle) ||
		strings.Contains(strings.ToLower(db.students[session.StudentID].Name), needle) ||
		strings.Contains(payment.Date, needle)
}

func (p memPayments) Create(_ context.Context, input repository.CreatePaymentInput) (*models.Payment, error) {
	p.db.mu.Lock()
	defer p.db.mu.Unlock()
	session, ok := p.db.sessions[input.SessionID]
	if !ok {
		return nil, foreignKeyError()
	}
	payment := models.Payment{
		ID:            uuid.New(),
		SessionID:     input.SessionID,
		TeacherName:   p.db.users[session.TeacherID].Name,
		StudentName:   p.db.students[session.StudentID].Name,
		Date:          input.Date,
		Amount:        input.Amount,
		Method:        input.Method,
		ProofImageURL: input.ProofImageURL,
		Notes:         input.Notes,
		AdminFee:      input.AdminFee,
		TeacherFee:    input.TeacherFee,
		CreatedAt:     time.Now(),
	}
	p.db.payments[payment.ID] = payment
	return &payment, nil
}

func (p memPayments) Update(_ context.Context, payment *models.Payment) (*models.Payment, error) {
	p.db.mu.Lock()
	defer p.db.mu.Unlock()
	if _, ok := p.db.payments[payment.ID]; !ok {
		return nil, pgx.ErrNoRows
	}
	p.db.payments[payment.ID] = *payment
	updated := *payment
	return &updated, nil
}

func (p memPayments) Delete(_ context.Context, id uuid.UUID) error {
	p.db.mu.Lock()
	defer p.db.mu.Unlock()
	if _, ok := p.db.payments[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(p.db.payments, id)
	return nil
}

func (p memPayments) MarkConfirmedByTeacher(_ context.Context, sessionID uuid.UUID) (int64, error) {
	p.db.mu.Lock()
	defer p.db.mu.Unlock()
	var updated int64
	for id, payment := range p.db.payments {
		if payment.SessionID == sessionID && !payment.ConfirmedByTeacher {
			payment.ConfirmedByTeacher = true
			p.db.payments[id] = payment
			updated++
		}
	}
	return updated, nil
}

type memStudents struct{ db *memDB }

func (s memStudents) GetByID(_ context.Context, id uuid.UUID) (*models.Student, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	student, ok := s.db.students[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &student, nil
}

func (s memStudents) List(_ context.Context, search string) ([]models.Student, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	students := make([]models.Student, 0)
	for _, student := range s.db.students {
		if search == "" || strings.Contains(strings.ToLower(student.Name), strings.ToLower(search)) {
			students = append(students, student)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].Name < students[j].Name })
	return students, nil
}

func (s memStudents) Create(_ context.Context, input repository.StudentInput) (*models.Student, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	student := models.Student{
		ID:        uuid.New(),
		Name:      input.Name,
		Email:     input.Email,
		Phone:     input.Phone,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.db.students[student.ID] = student
	return &student, nil
}

func (s memStudents) Update(_ context.Context, id uuid.UUID, input repository.StudentInput) (*models.Student, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	student, ok := s.db.students[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	student.Name = input.Name
	student.Email = input.Email
	student.Phone = input.Phone
	student.UpdatedAt = time.Now()
	s.db.students[id] = student
	return &student, nil
}

func (s memStudents) Delete(_ context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.students[id]; !ok {
		return pgx.ErrNoRows
	}
	for _, session := range s.db.sessions {
		if session.StudentID == id {
			return foreignKeyError()
		}
	}
	delete(s.db.students, id)
	return nil
}

type memTeachers struct{ db *memDB }

func (t memTeachers) GetByID(_ context.Context, id uuid.UUID) (*models.Teacher, error) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	teacher, ok := t.db.teachers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	user := t.db.users[id]
	teacher.Name = user.Name
	teacher.Email = user.Email
	return &teacher, nil
}

func (t memTeachers) List(ctx context.Context) ([]models.Teacher, error) {
	t.db.mu.Lock()
	ids := make([]uuid.UUID, 0, len(t.db.teachers))
	for id := range t.db.teachers {
		ids = append(ids, id)
	}
	t.db.mu.Unlock()

	teachers := make([]models.Teacher, 0, len(ids))
	for _, id := range ids {
		teacher, err := t.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		teachers = append(teachers, *teacher)
	}
	sort.Slice(teachers, func(i, j int) bool { return teachers[i].Name < teachers[j].Name })
	return teachers, nil
}

func (t memTeachers) Create(ctx context.Context, userID uuid.UUID, number *string) (*models.Teacher, error) {
	t.db.mu.Lock()
	user, ok := t.db.users[userID]
	if !ok {
		t.db.mu.Unlock()
		return nil, foreignKeyError()
	}
	t.db.teachers[userID] = models.Teacher{ID: userID, Number: number, CreatedAt: user.CreatedAt}
	t.db.mu.Unlock()
	return t.GetByID(ctx, userID)
}

func (t memTeachers) UpdateNumber(ctx context.Context, id uuid.UUID, number *string) (*models.Teacher, error) {
	t.db.mu.Lock()
	teacher, ok := t.db.teachers[id]
	if !ok {
		t.db.mu.Unlock()
		return nil, pgx.ErrNoRows
	}
	teacher.Number = number
	t.db.teachers[id] = teacher
	t.db.mu.Unlock()
	return t.GetByID(ctx, id)
}

func (t memTeachers) Delete(_ context.Context, id uuid.UUID) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	if _, ok := t.db.teachers[id]; !ok {
		return pgx.ErrNoRows
	}
	for _, session := range t.db.sessions {
		if session.TeacherID == id {
			return foreignKeyError()
		}
	}
	delete(t.db.teachers, id)
	return nil
}

type memUsers struct{ db *memDB }

func (u memUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()
	user, ok := u.db.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (u memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()
	for _, user := range u.db.users {
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (u memUsers) List(_ context.Context, role models.Role) ([]models.User, error) {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()
	users := make([]models.User, 0)
	for _, user := range u.db.users {
		if role == "" || user.Role == role {
			users = append(users, user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

func (u memUsers) LockForBootstrap(_ context.Context) error {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()
	u.db.userLocks++
	return nil
}

func (u memUsers) Count(_ context.Context) (int, error) {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()
	if u.db.userLocks == 0 {
		u.db.unlockedCounts++
	}
	return len(u.db.users), nil
}

func (u memUsers) CreateUser(_ context.Context, input repository.CreateUserInput) (*models.User, error) {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()
	for _, existing := range u.db.users {
		if existing.Email == input.Email {
			return nil, &pgconn.PgError{Code: pgUniqueViolation}
		}
	}
	user := models.User{
		ID:           uuid.New(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		Role:         input.Role,
		CreatedAt:    time.Now(),
	}
	u.db.users[user.ID] = user
	return &user, nil
}

func (u memUsers) Update(_ context.Context, id uuid.UUID, input repository.UpdateUserInput) (*models.User, error) {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()
	user, ok := u.db.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if input.Email != nil {
		for otherID, other := range u.db.users {
			if otherID != id && other.Email == *input.Email {
				return nil, &pgconn.PgError{Code: pgUniqueViolation}
			}
		}
		user.Email = *input.Email
	}
	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.Avatar != nil {
		user.Avatar = input.Avatar
	}
	u.db.users[id] = user
	return &user, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *recordingPublisher) Publish(event models.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []models.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]models.EventType, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, event.Type)
	}
	return types
}

type memStorage struct {
	mu       sync.Mutex
	objects  map[string][]byte
	deleted  []string
	failNext error
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (s *memStorage) Upload(_ context.Context, objectPath string, content []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return "", err
	}
	url := "https://storage.example.com/" + objectPath
	s.objects[url] = content
	return url, nil
}

func (s *memStorage) Delete(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, url)
	s.deleted = append(s.deleted, url)
	return nil
}

func actorFor(user models.User) domain.Actor {
	return domain.Actor{ID: user.ID, Role: user.Role}
}

func fixedClock(value string) func() time.Time {
	return func() time.Time {
		parsed, err := time.Parse(time.RFC3339, value)
		if err != nil {
			panic(err)
		}
		return parsed
	}
}
