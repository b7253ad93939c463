package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wmtylerbrown/lingible-sub000/internal/domain"
)

const (
	sessionKeyPrefix = "quiz:session:"
	userKeyPrefix    = "quiz:user:"

	defaultOpTimeout = 3 * time.Second
)

// getOrCreateScript atomically reuses the user's live session or expires the
// stale one and installs a replacement, so two concurrent requests can never
// both create a session for the same user.
var getOrCreateScript = redis.NewScript(`
local prefix = ARGV[7]
local now = tonumber(ARGV[4])
local cur = redis.call('GET', KEYS[1])
if cur then
  local skey = prefix .. cur
  local status = redis.call('HGET', skey, 'status')
  local last = tonumber(redis.call('HGET', skey, 'last_activity') or '0')
  local expires = tonumber(redis.call('HGET', skey, 'expires_at') or '0')
  if status == 'active' and (now - last) <= tonumber(ARGV[5]) and now < expires then
    return {0, cur}
  end
  if status == 'active' then
    redis.call('HSET', skey, 'status', 'expired')
  end
end
local skey = prefix .. ARGV[1]
redis.call('HSET', skey,
  'user_id', ARGV[2], 'difficulty', ARGV[3], 'status', 'active',
  'started_at', ARGV[4], 'last_activity', ARGV[4],
  'expires_at', tostring(now + tonumber(ARGV[6])),
  'questions_answered', '0', 'correct_count', '0',
  'total_score', '0', 'time_spent', '0')
redis.call('EXPIRE', skey, tonumber(ARGV[6]))
redis.call('SET', KEYS[1], ARGV[1], 'EX', tonumber(ARGV[6]))
return {1, ARGV[1]}
`)

// recordAnswerScript applies one scored submission as atomic increments,
// rejecting terminal sessions and already-answered questions. The answered set
// inherits the session's remaining hard TTL so the keys vanish together.
var recordAnswerScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return redis.error_reply('session not found')
end
if redis.call('HGET', KEYS[1], 'status') ~= 'active' then
  return redis.error_reply('session not active')
end
if redis.call('SADD', KEYS[2], ARGV[1]) == 0 then
  return redis.error_reply('duplicate answer')
end
local ttl = redis.call('TTL', KEYS[1])
if ttl > 0 then
  redis.call('EXPIRE', KEYS[2], ttl)
end
redis.call('HINCRBY', KEYS[1], 'questions_answered', 1)
if ARGV[2] == '1' then
  redis.call('HINCRBY', KEYS[1], 'correct_count', 1)
end
local score = redis.call('HINCRBYFLOAT', KEYS[1], 'total_score', ARGV[3])
local spent = redis.call('HINCRBYFLOAT', KEYS[1], 'time_spent', ARGV[4])
redis.call('HSET', KEYS[1], 'last_activity', ARGV[5])
local qa = redis.call('HGET', KEYS[1], 'questions_answered')
local cc = redis.call('HGET', KEYS[1], 'correct_count')
return {qa, cc, score, spent}
`)

// completeScript is the conditional active -> completed transition.
var completeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return redis.error_reply('session not found')
end
if redis.call('HGET', KEYS[1], 'status') ~= 'active' then
  return redis.error_reply('session not active')
end
redis.call('HSET', KEYS[1], 'status', 'completed', 'last_activity', ARGV[2])
if redis.call('GET', KEYS[2]) == ARGV[1] then
  redis.call('DEL', KEYS[2])
end
return 1
`)

// expireScript marks an active session expired; terminal states are untouched.
var expireScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return redis.error_reply('session not found')
end
if redis.call('HGET', KEYS[1], 'status') == 'active' then
  redis.call('HSET', KEYS[1], 'status', 'expired')
end
if redis.call('GET', KEYS[2]) == ARGV[1] then
  redis.call('DEL', KEYS[2])
end
return 1
`)

// SessionStore is a Redis-backed implementation of app.SessionStore.
// Session state lives in a hash per session with side keys for the answer key,
// answered-question set, and used-distractor set; a per-user pointer key backs
// the one-active-session-per-user invariant. Every multi-step mutation runs as
// a Lua script so it is atomic on the server.
type SessionStore struct {
	client     *redis.Client
	idleWindow time.Duration
	ttl        time.Duration
	opTimeout  time.Duration
}

func NewSessionStore(client *redis.Client, idleWindow, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:     client,
		idleWindow: idleWindow,
		ttl:        ttl,
		opTimeout:  defaultOpTimeout,
	}
}

func (s *SessionStore) GetOrCreate(ctx context.Context, userID string, difficulty domain.Difficulty, now time.Time) (domain.QuizSession, bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	candidate := domain.NewID()
	result, err := getOrCreateScript.Run(ctx, s.client,
		[]string{userKey(userID)},
		candidate, userID, string(difficulty),
		now.Unix(), int64(s.idleWindow.Seconds()), int64(s.ttl.Seconds()),
		sessionKeyPrefix,
	).Slice()
	if err != nil {
		return domain.QuizSession{}, false, storeErr("get or create session", err)
	}
	if len(result) != 2 {
		return domain.QuizSession{}, false, storeErr("get or create session", fmt.Errorf("unexpected reply %v", result))
	}
	created := result[0].(int64) == 1
	sessionID := result[1].(string)

	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return domain.QuizSession{}, false, err
	}
	return session, created, nil
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (domain.QuizSession, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	fields, err := s.client.HGetAll(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return domain.QuizSession{}, storeErr("load session", err)
	}
	if len(fields) == 0 {
		return domain.QuizSession{}, domain.ErrSessionNotFound
	}
	return parseSession(sessionID, fields)
}

func (s *SessionStore) AppendQuestion(ctx context.Context, sessionID string, issued domain.IssuedQuestion, now time.Time) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	key, err := json.Marshal(issued.Key)
	if err != nil {
		return fmt.Errorf("marshal answer key: %w", err)
	}

	remaining, err := s.client.TTL(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return storeErr("session ttl", err)
	}

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, answersKey(sessionID), issued.Question.QuestionID, key)
	if len(issued.WrongOptions) > 0 {
		members := make([]interface{}, len(issued.WrongOptions))
		for i, option := range issued.WrongOptions {
			members[i] = option
		}
		pipe.SAdd(ctx, usedKey(sessionID), members...)
	}
	pipe.HSet(ctx, sessionKey(sessionID), "last_activity", now.Unix())
	if remaining > 0 {
		// Side keys ride the session's hard TTL so they vanish together.
		pipe.Expire(ctx, answersKey(sessionID), remaining)
		pipe.Expire(ctx, usedKey(sessionID), remaining)
		pipe.Expire(ctx, answeredKey(sessionID), remaining)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return storeErr("append question", err)
	}
	return nil
}

func (s *SessionStore) AnswerKey(ctx context.Context, sessionID, questionID string) (domain.AnswerKey, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	raw, err := s.client.HGet(ctx, answersKey(sessionID), questionID).Result()
	if err == redis.Nil {
		return domain.AnswerKey{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.AnswerKey{}, storeErr("load answer key", err)
	}
	var key domain.AnswerKey
	if err := json.Unmarshal([]byte(raw), &key); err != nil {
		return domain.AnswerKey{}, storeErr("decode answer key", err)
	}
	return key, nil
}

func (s *SessionStore) RecordAnswer(ctx context.Context, sessionID, questionID string, correct bool, points, timeTaken float64, now time.Time) (domain.SessionStats, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	correctArg := "0"
	if correct {
		correctArg = "1"
	}
	result, err := recordAnswerScript.Run(ctx, s.client,
		[]string{sessionKey(sessionID), answeredKey(sessionID)},
		questionID, correctArg,
		strconv.FormatFloat(points, 'f', -1, 64),
		strconv.FormatFloat(timeTaken, 'f', -1, 64),
		now.Unix(),
	).Slice()
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "duplicate answer"):
			return domain.SessionStats{}, domain.ErrQuestionAnswered
		case strings.Contains(err.Error(), "session not found"):
			return domain.SessionStats{}, domain.ErrSessionNotFound
		case strings.Contains(err.Error(), "session not active"):
			return domain.SessionStats{}, domain.ErrSessionExpired
		}
		return domain.SessionStats{}, storeErr("record answer", err)
	}
	if len(result) != 4 {
		return domain.SessionStats{}, storeErr("record answer", fmt.Errorf("unexpected reply %v", result))
	}

	answered, _ := strconv.Atoi(toString(result[0]))
	correctCount, _ := strconv.Atoi(toString(result[1]))
	totalScore, _ := strconv.ParseFloat(toString(result[2]), 64)
	timeSpent, _ := strconv.ParseFloat(toString(result[3]), 64)

	accuracy := 0.0
	if answered > 0 {
		accuracy = float64(correctCount) / float64(answered)
	}
	return domain.SessionStats{
		QuestionsAnswered: answered,
		CorrectCount:      correctCount,
		TotalScore:        totalScore,
		Accuracy:          accuracy,
		TimeSpentSeconds:  timeSpent,
	}, nil
}

func (s *SessionStore) AskedTerms(ctx context.Context, sessionID string) ([]string, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	values, err := s.client.HVals(ctx, answersKey(sessionID)).Result()
	if err != nil {
		return nil, storeErr("load asked terms", err)
	}
	terms := make([]string, 0, len(values))
	for _, raw := range values {
		var key domain.AnswerKey
		if err := json.Unmarshal([]byte(raw), &key); err != nil {
			continue
		}
		terms = append(terms, key.Term)
	}
	return terms, nil
}

func (s *SessionStore) UsedWrongOptions(ctx context.Context, sessionID string) ([]string, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	members, err := s.client.SMembers(ctx, usedKey(sessionID)).Result()
	if err != nil {
		return nil, storeErr("load used options", err)
	}
	return members, nil
}

func (s *SessionStore) Expire(ctx context.Context, sessionID string) error {
	return s.transition(ctx, expireScript, sessionID, time.Time{})
}

func (s *SessionStore) Complete(ctx context.Context, sessionID string, now time.Time) error {
	return s.transition(ctx, completeScript, sessionID, now)
}

func (s *SessionStore) transition(ctx context.Context, script *redis.Script, sessionID string, now time.Time) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	err = script.Run(ctx, s.client,
		[]string{sessionKey(sessionID), userKey(session.UserID)},
		sessionID, now.Unix(),
	).Err()
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "session not found"):
			return domain.ErrSessionNotFound
		case strings.Contains(err.Error(), "session not active"):
			return domain.ErrSessionExpired
		}
		return storeErr("session transition", err)
	}
	return nil
}

func (s *SessionStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

func parseSession(sessionID string, fields map[string]string) (domain.QuizSession, error) {
	answered, _ := strconv.Atoi(fields["questions_answered"])
	correctCount, _ := strconv.Atoi(fields["correct_count"])
	totalScore, _ := strconv.ParseFloat(fields["total_score"], 64)
	timeSpent, _ := strconv.ParseFloat(fields["time_spent"], 64)
	startedAt, _ := strconv.ParseInt(fields["started_at"], 10, 64)
	lastActivity, _ := strconv.ParseInt(fields["last_activity"], 10, 64)
	expiresAt, _ := strconv.ParseInt(fields["expires_at"], 10, 64)

	return domain.QuizSession{
		ID:                sessionID,
		UserID:            fields["user_id"],
		Difficulty:        domain.Difficulty(fields["difficulty"]),
		Status:            domain.SessionStatus(fields["status"]),
		QuestionsAnswered: answered,
		CorrectCount:      correctCount,
		TotalScore:        totalScore,
		TimeSpentSeconds:  timeSpent,
		StartedAt:         time.Unix(startedAt, 0).UTC(),
		LastActivity:      time.Unix(lastActivity, 0).UTC(),
		ExpiresAt:         time.Unix(expiresAt, 0).UTC(),
	}, nil
}

func toString(v interface{}) string {
	switch value := v.(type) {
	case string:
		return value
	case int64:
		return strconv.FormatInt(value, 10)
	default:
		return fmt.Sprint(value)
	}
}

func sessionKey(sessionID string) string  { return sessionKeyPrefix + sessionID }
func answersKey(sessionID string) string  { return sessionKeyPrefix + sessionID + ":answers" }
func usedKey(sessionID string) string     { return sessionKeyPrefix + sessionID + ":used" }
func answeredKey(sessionID string) string { return sessionKeyPrefix + sessionID + ":answered" }
func userKey(userID string) string        { return userKeyPrefix + userID + ":active" }

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, domain.ErrStorage)
}
