package registry

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"referral_system/internal/domain"
	"referral_system/internal/testutil"
	"referral_system/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)

func sequenceCodes(codes ...string) CodeGenerator {
	i := 0
	return func() (string, error) {
		code := codes[i%len(codes)]
		i++
		return code, nil
	}
}

func createUser(t *testing.T, reg *Registry, address string, referredBy *string) *domain.User {
	t.Helper()

	var user *domain.User
	err := reg.Update(context.Background(), func(tx *Tx) error {
		var err error
		user, err = tx.Create(address, referredBy)
		return err
	})
	require.NoError(t, err)
	return user
}

func findUser(t *testing.T, reg *Registry, address string) *domain.User {
	t.Helper()

	var user *domain.User
	err := reg.View(context.Background(), func(tx *Tx) error {
		var err error
		user, err = tx.FindByWallet(address)
		return err
	})
	require.NoError(t, err)
	return user
}

func TestDefaultUsername(t *testing.T) {
	assert.Equal(t, "User_12345678", DefaultUsername("0xabcdef0012345678"))
	assert.Equal(t, "User_0xabc", DefaultUsername("0xabc"))
	assert.Equal(t, "User_12345678", DefaultUsername("12345678"))
}

func TestNewReferralCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := NewReferralCode()
		require.NoError(t, err)
		assert.Regexp(t, codePattern, code)
	}
}

func TestCreate_InitializesRecord(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	reg := New(testutil.NewTestDB(t), WithClock(func() time.Time { return now }))

	user := createUser(t, reg, "0xabcdef0012345678", nil)

	assert.Equal(t, "0xabcdef0012345678", user.WalletAddress)
	assert.Equal(t, "User_12345678", user.Username)
	assert.Regexp(t, codePattern, user.ReferralCode)
	assert.Nil(t, user.ReferredBy)
	assert.Equal(t, 0, user.ReferralCount)
	assert.Equal(t, 0, user.TotalRewards)
	assert.Equal(t, domain.LevelBronze, user.Level)
	assert.Equal(t, now, user.JoinedAt)
	assert.Equal(t, now, user.LastActive)

	stored := findUser(t, reg, "0xabcdef0012345678")
	require.NotNil(t, stored)
	assert.Equal(t, user.ReferralCode, stored.ReferralCode)
}

func TestCreate_StoresReferredByVerbatim(t *testing.T) {
	reg := New(testutil.NewTestDB(t))
	code := "NOBODY01"

	user := createUser(t, reg, "0xaaaa", &code)

	stored := findUser(t, reg, user.WalletAddress)
	require.NotNil(t, stored.ReferredBy)
	assert.Equal(t, "NOBODY01", *stored.ReferredBy)
}

func TestCreate_DuplicateWallet(t *testing.T) {
	reg := New(testutil.NewTestDB(t))
	createUser(t, reg, "0xaaaa", nil)

	err := reg.Update(context.Background(), func(tx *Tx) error {
		_, err := tx.Create("0xaaaa", nil)
		return err
	})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestLookups_MatchCaseExactly(t *testing.T) {
	reg := New(testutil.NewTestDB(t), WithCodeGenerator(sequenceCodes("ABCD1234", "EFGH5678")))
	lower := createUser(t, reg, "0xabcd", nil)
	require.Equal(t, "ABCD1234", lower.ReferralCode)

	err := reg.View(context.Background(), func(tx *Tx) error {
		byWallet, err := tx.FindByWallet("0xABCD")
		require.NoError(t, err)
		assert.Nil(t, byWallet)

		byCode, err := tx.FindByReferralCode("abcd1234")
		require.NoError(t, err)
		assert.Nil(t, byCode)

		byName, err := tx.FindByUsername("user_0xabcd")
		require.NoError(t, err)
		assert.Nil(t, byName)
		return nil
	})
	require.NoError(t, err)

	upper := createUser(t, reg, "0xABCD", nil)
	assert.NotEqual(t, lower.ID, upper.ID)
	assert.Equal(t, "User_0xABCD", upper.Username)
}

func TestCreate_RegeneratesCollidingReferralCode(t *testing.T) {
	reg := New(testutil.NewTestDB(t), WithCodeGenerator(sequenceCodes("AAAAAAAA", "AAAAAAAA", "BBBBBBBB")))

	first := createUser(t, reg, "0x0001", nil)
	second := createUser(t, reg, "0x0002", nil)

	assert.Equal(t, "AAAAAAAA", first.ReferralCode)
	assert.Equal(t, "BBBBBBBB", second.ReferralCode)
}

func TestCreate_ReferralCodeExhaustionRollsBack(t *testing.T) {
	reg := New(testutil.NewTestDB(t), WithCodeGenerator(sequenceCodes("AAAAAAAA")))
	createUser(t, reg, "0x0001", nil)

	err := reg.Update(context.Background(), func(tx *Tx) error {
		_, err := tx.Create("0x0002", nil)
		return err
	})
	assert.ErrorIs(t, err, ErrIdentifierExhausted)
	assert.Nil(t, findUser(t, reg, "0x0002"))
}

func TestCreate_RegeneratesCollidingUsername(t *testing.T) {
	reg := New(testutil.NewTestDB(t))

	first := createUser(t, reg, "0xaaaa12345678", nil)
	second := createUser(t, reg, "0xbbbb12345678", nil)

	assert.Equal(t, "User_12345678", first.Username)
	assert.Regexp(t, `^User_12345678_[0-9]{4}$`, second.Username)
}

func TestTouch_UpdatesLastActive(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	reg := New(testutil.NewTestDB(t), WithClock(func() time.Time { return now }))
	user := createUser(t, reg, "0xaaaa", nil)

	now = now.Add(time.Hour)
	err := reg.Update(context.Background(), func(tx *Tx) error {
		return tx.Touch(user)
	})
	require.NoError(t, err)

	assert.Equal(t, now, user.LastActive)
	stored := findUser(t, reg, "0xaaaa")
	assert.WithinDuration(t, now, stored.LastActive, time.Second)
	assert.WithinDuration(t, now.Add(-time.Hour), stored.JoinedAt, time.Second)
}

func TestUpdateProfile_AppliesFields(t *testing.T) {
	reg := New(testutil.NewTestDB(t))
	user := createUser(t, reg, "0xaaaa", nil)
	avatar := "https://example.com/a.png"

	err := reg.Update(context.Background(), func(tx *Tx) error {
		return tx.UpdateProfile(user, ProfileUpdate{Username: "alice", ReferralCode: "ALICE001", AvatarURL: &avatar})
	})
	require.NoError(t, err)

	stored := findUser(t, reg, "0xaaaa")
	assert.Equal(t, "alice", stored.Username)
	assert.Equal(t, "ALICE001", stored.ReferralCode)
	assert.Equal(t, avatar, stored.AvatarURL)
}

func TestUpdateProfile_EmptyFieldsAreIgnored(t *testing.T) {
	reg := New(testutil.NewTestDB(t))
	user := createUser(t, reg, "0xaaaa", nil)

	err := reg.Update(context.Background(), func(tx *Tx) error {
		return tx.UpdateProfile(user, ProfileUpdate{})
	})
	require.NoError(t, err)

	stored := findUser(t, reg, "0xaaaa")
	assert.Equal(t, user.Username, stored.Username)
	assert.Equal(t, user.ReferralCode, stored.ReferralCode)
}

func TestUpdateProfile_ClearsAvatar(t *testing.T) {
	reg := New(testutil.NewTestDB(t))
	user := createUser(t, reg, "0xaaaa", nil)
	avatar := "https://example.com/a.png"
	empty := ""

	require.NoError(t, reg.Update(context.Background(), func(tx *Tx) error {
		return tx.UpdateProfile(user, ProfileUpdate{AvatarURL: &avatar})
	}))
	require.NoError(t, reg.Update(context.Background(), func(tx *Tx) error {
		return tx.UpdateProfile(user, ProfileUpdate{AvatarURL: &empty})
	}))

	assert.Equal(t, "", findUser(t, reg, "0xaaaa").AvatarURL)
}

func TestUpdateProfile_OwnValuesAreNotConflicts(t *testing.T) {
	reg := New(testutil.NewTestDB(t))
	user := createUser(t, reg, "0xaaaa", nil)

	err := reg.Update(context.Background(), func(tx *Tx) error {
		return tx.UpdateProfile(user, ProfileUpdate{Username: user.Username, ReferralCode: user.ReferralCode})
	})
	assert.NoError(t, err)
}

func TestUpdateProfile_ConflictWritesNothing(t *testing.T) {
	reg := New(testutil.NewTestDB(t))
	x := createUser(t, reg, "0xaaaa", nil)
	y := createUser(t, reg, "0xbbbb", nil)
	avatar := "https://example.com/x.png"

	err := reg.Update(context.Background(), func(tx *Tx) error {
		return tx.UpdateProfile(x, ProfileUpdate{Username: y.Username, AvatarURL: &avatar})
	})
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "", x.AvatarURL)

	stored := findUser(t, reg, "0xaaaa")
	assert.Equal(t, "User_0xaaaa", stored.Username)
	assert.Equal(t, "", stored.AvatarURL)
}

func TestUpdateProfile_ReferralCodeConflict(t *testing.T) {
	reg := New(testutil.NewTestDB(t))
	x := createUser(t, reg, "0xaaaa", nil)
	y := createUser(t, reg, "0xbbbb", nil)

	err := reg.Update(context.Background(), func(tx *Tx) error {
		return tx.UpdateProfile(x, ProfileUpdate{Username: "fresh", ReferralCode: y.ReferralCode})
	})
	assert.ErrorIs(t, err, ErrReferralCodeTaken)
	assert.Equal(t, "User_0xaaaa", findUser(t, reg, "0xaaaa").Username)
}

func TestCreditReferral_IncrementsAndRelevels(t *testing.T) {
	reg := New(testutil.NewTestDB(t))
	user := createUser(t, reg, "0xaaaa", nil)

	for i := 0; i < 10; i++ {
		require.NoError(t, reg.Update(context.Background(), func(tx *Tx) error {
			referrer, err := tx.FindByWallet("0xaaaa")
			if err != nil {
				return err
			}
			return tx.CreditReferral(referrer)
		}))
	}

	stored := findUser(t, reg, user.WalletAddress)
	assert.Equal(t, 10, stored.ReferralCount)
	assert.Equal(t, 10*domain.ReferralReward, stored.TotalRewards)
	assert.Equal(t, domain.LevelSilver, stored.Level)
}

func TestSnapshot_RegistryOrder(t *testing.T) {
	reg := New(testutil.NewTestDB(t))
	for _, addr := range []string{"0x03", "0x01", "0x02"} {
		createUser(t, reg, addr, nil)
	}

	var users []domain.User
	require.NoError(t, reg.View(context.Background(), func(tx *Tx) error {
		var err error
		users, err = tx.Snapshot()
		return err
	}))

	require.Len(t, users, 3)
	assert.Equal(t, "0x03", users[0].WalletAddress)
	assert.Equal(t, "0x01", users[1].WalletAddress)
	assert.Equal(t, "0x02", users[2].WalletAddress)
}

func TestPageAndCount(t *testing.T) {
	reg := New(testutil.NewTestDB(t))
	for _, addr := range []string{"0x01", "0x02", "0x03", "0x04", "0x05"} {
		createUser(t, reg, addr, nil)
	}

	require.NoError(t, reg.View(context.Background(), func(tx *Tx) error {
		total, err := tx.Count()
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)

		page, err := tx.Page(2, 2)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "0x03", page[0].WalletAddress)
		assert.Equal(t, "0x04", page[1].WalletAddress)
		return nil
	}))
}

func TestUpdate_RollsBackOnError(t *testing.T) {
	reg := New(testutil.NewTestDB(t))
	boom := errors.New("boom")

	err := reg.Update(context.Background(), func(tx *Tx) error {
		if _, err := tx.Create("0xaaaa", nil); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Nil(t, findUser(t, reg, "0xaaaa"))
}

type countingLocker struct {
	locks   int
	unlocks int
	err     error
}

func (l *countingLocker) Lock(ctx context.Context) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.locks++
	return func() { l.unlocks++ }, nil
}

func TestUpdate_TakesLocker(t *testing.T) {
	locker := &countingLocker{}
	reg := New(testutil.NewTestDB(t), WithLocker(locker))

	createUser(t, reg, "0xaaaa", nil)
	findUser(t, reg, "0xaaaa")

	assert.Equal(t, 1, locker.locks)
	assert.Equal(t, 1, locker.unlocks)
}

func TestUpdate_LockFailureRunsNothing(t *testing.T) {
	locker := &countingLocker{err: ErrLockTimeout}
	reg := New(testutil.NewTestDB(t), WithLocker(locker))
	called := false

	err := reg.Update(context.Background(), func(tx *Tx) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.False(t, called)
}

func TestUpdate_BumpsViewGeneration(t *testing.T) {
	client, _ := testutil.NewTestRedis(t)
	cache := utils.NewViewCache(client, "test:views", time.Minute)
	reg := New(testutil.NewTestDB(t), WithViewCache(cache))
	ctx := context.Background()

	createUser(t, reg, "0xaaaa", nil)
	gen, err := cache.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)

	_ = reg.Update(ctx, func(tx *Tx) error { return errors.New("boom") })
	gen, err = cache.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
}

func TestUpdate_FailedInvalidationServesFreshViews(t *testing.T) {
	client, mr := testutil.NewTestRedis(t)
	cache := utils.NewViewCache(client, "test:views", time.Minute)
	reg := New(testutil.NewTestDB(t), WithViewCache(cache))
	ctx := context.Background()

	count := func() (int64, error) {
		var total int64
		err := reg.View(ctx, func(tx *Tx) error {
			var err error
			total, err = tx.Count()
			return err
		})
		return total, err
	}

	createUser(t, reg, "0xaaaa", nil)
	total, _, err := utils.Cached(ctx, cache, "count", count)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	mr.SetError("ERR injected failure")
	createUser(t, reg, "0xbbbb", nil)
	assert.True(t, cache.Stale())
	mr.SetError("")

	total, hit, err := utils.Cached(ctx, cache, "count", count)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int64(2), total)
	assert.False(t, cache.Stale())
}
