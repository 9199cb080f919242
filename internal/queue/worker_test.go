package queue_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	config "github.com/pageflowhq/pageflow/configs"
	"github.com/pageflowhq/pageflow/internal/models"
	"github.com/pageflowhq/pageflow/internal/queue"
	"github.com/pageflowhq/pageflow/internal/transfer"
	"github.com/pageflowhq/pageflow/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

// fakePostStore keeps posts in memory with the same conditional-update
// semantics as the SQL repository.
type fakePostStore struct {
	mu    sync.Mutex
	posts map[int64]*models.Post
}

func newFakePostStore(posts ...*models.Post) *fakePostStore {
	s := &fakePostStore{posts: make(map[int64]*models.Post)}
	for _, p := range posts {
		s.posts[p.ID] = p
	}
	return s
}

func (s *fakePostStore) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *fakePostStore) Finalize(ctx context.Context, id int64, expectedStatus, newStatus int, fbPostID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok || p.Status != expectedStatus {
		return false, nil
	}
	p.Status = newStatus
	if fbPostID != "" {
		p.FBPostID = fbPostID
	}
	return true, nil
}

func (s *fakePostStore) ClaimDue(ctx context.Context, limit int, now time.Time) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var claimed []int64
	for _, p := range s.posts {
		if len(claimed) == limit {
			break
		}
		if p.Status == models.PostStatusScheduled && !p.PostAt.After(now) {
			p.Status = models.PostStatusSending
			claimed = append(claimed, p.ID)
		}
	}
	return claimed, nil
}

func (s *fakePostStore) status(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.posts[id].Status
}

func (s *fakePostStore) fbPostID(id int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.posts[id].FBPostID
}

func (s *fakePostStore) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	return 0, errors.New("not implemented")
}

func (s *fakePostStore) GetByMemberAndID(ctx context.Context, memberID, id int64) (*models.Post, error) {
	return nil, errors.New("not implemented")
}

func (s *fakePostStore) ListByMemberID(ctx context.Context, memberID int64, status, page, limit int) ([]*models.Post, error) {
	return nil, errors.New("not implemented")
}

func (s *fakePostStore) CountByMemberID(ctx context.Context, memberID int64, status int) (int, error) {
	return 0, errors.New("not implemented")
}

func (s *fakePostStore) Update(ctx context.Context, post *models.Post) error {
	return errors.New("not implemented")
}

func (s *fakePostStore) SoftDelete(ctx context.Context, id int64) error {
	return errors.New("not implemented")
}

type fakePageStore struct {
	pages map[[2]int64]*models.MemberPage
}

func newFakePageStore(pages ...*models.MemberPage) *fakePageStore {
	s := &fakePageStore{pages: make(map[[2]int64]*models.MemberPage)}
	for _, p := range pages {
		s.pages[[2]int64{p.MemberID, p.PageID}] = p
	}
	return s
}

func (s *fakePageStore) GetByMemberAndPage(ctx context.Context, memberID, pageID int64) (*models.MemberPage, error) {
	return s.pages[[2]int64{memberID, pageID}], nil
}

func (s *fakePageStore) Upsert(ctx context.Context, tx *sql.Tx, mp *models.MemberPage) (int64, error) {
	return 0, errors.New("not implemented")
}

func (s *fakePageStore) ListByMemberID(ctx context.Context, memberID int64) ([]*models.MemberPage, error) {
	return nil, errors.New("not implemented")
}

func (s *fakePageStore) Remove(ctx context.Context, memberID, pageID int64) error {
	return errors.New("not implemented")
}

// fakeFacebook records publishing calls and plays back canned results.
type fakeFacebook struct {
	mu           sync.Mutex
	uploadResult string
	postResult   string
	uploadCalls  int
	postCalls    int
	lastImageURL string
	lastImageID  string
	lastMessage  string
	lastToken    string
}

func (f *fakeFacebook) UploadImageToPage(ctx context.Context, pageID, accessToken, imageURL string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadCalls++
	f.lastImageURL = imageURL
	f.lastToken = accessToken
	return f.uploadResult
}

func (f *fakeFacebook) PostToPage(ctx context.Context, pageID, accessToken, message, imageID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.postCalls++
	f.lastMessage = message
	f.lastImageID = imageID
	f.lastToken = accessToken
	return f.postResult
}

func (f *fakeFacebook) LoginURL(state string) string { return "" }

func (f *fakeFacebook) ExchangeCodeForToken(ctx context.Context, code string) (*transfer.FacebookToken, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeFacebook) GetUserProfile(ctx context.Context, accessToken string) (*transfer.FacebookUser, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeFacebook) GetUserPages(ctx context.Context, accessToken string) ([]*transfer.FacebookPage, error) {
	return nil, errors.New("not implemented")
}

type fakeResolver struct{}

func (fakeResolver) FileURL(key string) string { return "https://cdn.test/" + key }

func encryptedToken(t *testing.T, token string) string {
	t.Helper()
	enc, err := utils.Encrypt([]byte(token), []byte(testSecret))
	require.NoError(t, err)
	return enc
}

func testPage(t *testing.T, memberID, pageID int64) *models.MemberPage {
	return &models.MemberPage{
		MemberID:    memberID,
		PageID:      pageID,
		PageName:    "Test Page",
		AccessToken: encryptedToken(t, "page-token"),
	}
}

func testQueue(t *testing.T, store *fakePostStore, pages *fakePageStore, fb *fakeFacebook) *queue.Queue {
	cfg := config.Config{SecretKey: testSecret}
	return queue.NewQueue(cfg, store, pages, fb, fakeResolver{})
}

func TestPublishPostHappyPath(t *testing.T) {
	store := newFakePostStore(&models.Post{
		ID:       1,
		MemberID: 10,
		PageID:   500,
		PostText: "hello",
		Status:   models.PostStatusSending,
	})
	fb := &fakeFacebook{postResult: "1001"}
	q := testQueue(t, store, newFakePageStore(testPage(t, 10, 500)), fb)

	err := q.PublishPost(context.Background(), 1)
	assert.NoError(t, err)

	assert.Equal(t, models.PostStatusPublished, store.status(1))
	assert.Equal(t, "1001", store.fbPostID(1))
	assert.Equal(t, 0, fb.uploadCalls)
	assert.Equal(t, 1, fb.postCalls)
	assert.Equal(t, "hello", fb.lastMessage)
	assert.Equal(t, "page-token", fb.lastToken)
}

func TestPublishPostWithImage(t *testing.T) {
	store := newFakePostStore(&models.Post{
		ID:        1,
		MemberID:  10,
		PageID:    500,
		PostText:  "with picture",
		PostImage: "post_images/1/abc.jpg",
		Status:    models.PostStatusSending,
	})
	fb := &fakeFacebook{uploadResult: "img9", postResult: "1002"}
	q := testQueue(t, store, newFakePageStore(testPage(t, 10, 500)), fb)

	err := q.PublishPost(context.Background(), 1)
	assert.NoError(t, err)

	assert.Equal(t, 1, fb.uploadCalls)
	assert.Equal(t, "https://cdn.test/post_images/1/abc.jpg", fb.lastImageURL)
	assert.Equal(t, 1, fb.postCalls)
	assert.Equal(t, "img9", fb.lastImageID)
	assert.Equal(t, models.PostStatusPublished, store.status(1))
}

func TestPublishPostSkipsWhenStatusDrifted(t *testing.T) {
	store := newFakePostStore(&models.Post{
		ID:       1,
		MemberID: 10,
		PageID:   500,
		Status:   models.PostStatusPublished,
	})
	fb := &fakeFacebook{postResult: "1001"}
	q := testQueue(t, store, newFakePageStore(testPage(t, 10, 500)), fb)

	err := q.PublishPost(context.Background(), 1)
	assert.NoError(t, err)

	assert.Equal(t, 0, fb.uploadCalls)
	assert.Equal(t, 0, fb.postCalls)
	assert.Equal(t, models.PostStatusPublished, store.status(1))
}

func TestPublishPostMissingCredential(t *testing.T) {
	store := newFakePostStore(&models.Post{
		ID:       4,
		MemberID: 10,
		PageID:   999,
		Status:   models.PostStatusSending,
	})
	fb := &fakeFacebook{postResult: "1001"}
	q := testQueue(t, store, newFakePageStore(), fb)

	err := q.PublishPost(context.Background(), 4)
	assert.NoError(t, err)

	assert.Equal(t, models.PostStatusSendFailed, store.status(4))
	assert.Equal(t, 0, fb.uploadCalls)
	assert.Equal(t, 0, fb.postCalls)
}

func TestPublishPostImageUploadFails(t *testing.T) {
	store := newFakePostStore(&models.Post{
		ID:        3,
		MemberID:  10,
		PageID:    500,
		PostImage: "post_images/3/img.jpg",
		Status:    models.PostStatusSending,
	})
	fb := &fakeFacebook{uploadResult: "", postResult: "1001"}
	q := testQueue(t, store, newFakePageStore(testPage(t, 10, 500)), fb)

	err := q.PublishPost(context.Background(), 3)
	assert.NoError(t, err)

	assert.Equal(t, models.PostStatusSendFailed, store.status(3))
	assert.Equal(t, 1, fb.uploadCalls)
	assert.Equal(t, 0, fb.postCalls, "create post must never run after a failed upload")
}

func TestPublishPostTransientFailure(t *testing.T) {
	store := newFakePostStore(&models.Post{
		ID:       2,
		MemberID: 10,
		PageID:   500,
		Status:   models.PostStatusSending,
	})
	fb := &fakeFacebook{postResult: ""}
	q := testQueue(t, store, newFakePageStore(testPage(t, 10, 500)), fb)

	// three attempts, all transient
	for i := 0; i < 3; i++ {
		err := q.PublishPost(context.Background(), 2)
		assert.ErrorIs(t, err, queue.ErrFacebookAPI)
		assert.Equal(t, models.PostStatusSending, store.status(2))
	}
	assert.Equal(t, 3, fb.postCalls)

	// attempts exhausted: finalize once, then again to prove idempotence
	q.FinalizeFailure(2)
	assert.Equal(t, models.PostStatusSendFailed, store.status(2))
	q.FinalizeFailure(2)
	assert.Equal(t, models.PostStatusSendFailed, store.status(2))
	assert.Equal(t, "", store.fbPostID(2))
}

func TestHandleSendPostTaskFinalAttemptFinalizes(t *testing.T) {
	store := newFakePostStore(&models.Post{
		ID:       2,
		MemberID: 10,
		PageID:   500,
		Status:   models.PostStatusSending,
	})
	fb := &fakeFacebook{postResult: ""}
	q := testQueue(t, store, newFakePageStore(testPage(t, 10, 500)), fb)

	// A bare context carries no retry metadata, which the handler treats as
	// the last attempt.
	task := asynq.NewTask(queue.TaskTypeSendPost, []byte(`{"post_id":2}`))
	err := q.HandleSendPostTask(context.Background(), task)

	assert.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Equal(t, models.PostStatusSendFailed, store.status(2))
}

func TestHandleSendPostTaskBadPayload(t *testing.T) {
	store := newFakePostStore()
	q := testQueue(t, store, newFakePageStore(), &fakeFacebook{})

	task := asynq.NewTask(queue.TaskTypeSendPost, []byte(`{broken`))
	err := q.HandleSendPostTask(context.Background(), task)

	assert.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
