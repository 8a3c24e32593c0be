package auditq

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOutput = `----
time->Mon Mar  1 14:02:58 2026
type=PROCTITLE msg=audit(1772373778.100:441): proctitle=636174
type=PATH msg=audit(1772373778.100:441): item=0 name="/srv/watched/a.txt" inode=131 dev=fd:01 mode=0100644 ouid=1000 ogid=1000
type=SYSCALL msg=audit(1772373778.100:441): arch=c000003e syscall=257 success=yes exit=3 a0=ffffff9c ppid=900 pid=4100 auid=1000 uid=1000 gid=1000 comm="cat" exe="/usr/bin/cat" key="vigil"
----
time->Mon Mar  1 14:03:05 2026
type=PROCTITLE msg=audit(1772373785.123:456): proctitle=76696D
type=PATH msg=audit(1772373785.123:456): item=1 name="a.txt" inode=131 dev=fd:01 mode=0100644 ouid=1000 ogid=1000
type=SYSCALL msg=audit(1772373785.123:456): arch=c000003e syscall=257 success=yes exit=3 a0=ffffff9c ppid=901 pid=4242 auid=1000 uid=1001 gid=1001 comm="vim" exe="/usr/bin/vim" key="vigil"
----
time->Mon Mar  1 14:03:06 2026
type=PATH msg=audit(1772373786.200:457): item=0 name="other.txt" inode=99
type=SYSCALL msg=audit(1772373786.200:457): arch=c000003e syscall=257 success=yes uid=1002 pid=5000 comm="nano" key="vigil"
`

func TestParseRecordsMostRecentFirst(t *testing.T) {
	records := ParseRecords([]byte(sampleOutput), "a.txt")
	require.Len(t, records, 2)

	// Newest block first.
	assert.Equal(t, 1001, records[0].UID)
	assert.Equal(t, 4242, records[0].PID)
	assert.Equal(t, "vim", records[0].Comm)

	assert.Equal(t, 1000, records[1].UID)
	assert.Equal(t, "cat", records[1].Comm)
}

func TestParseRecordsFiltersByBasename(t *testing.T) {
	records := ParseRecords([]byte(sampleOutput), "other.txt")
	require.Len(t, records, 1)
	assert.Equal(t, "nano", records[0].Comm)

	assert.Empty(t, ParseRecords([]byte(sampleOutput), "absent.txt"))
}

func TestParseRecordsToleratesMissingFields(t *testing.T) {
	partial := `----
type=PATH msg=audit(1.0:1): item=0 name="a.txt"
type=SYSCALL msg=audit(1.0:1): arch=c000003e comm="sed" key="vigil"
`
	records := ParseRecords([]byte(partial), "a.txt")
	require.Len(t, records, 1)
	assert.Equal(t, -1, records[0].UID)
	assert.Equal(t, -1, records[0].PID)
	assert.Equal(t, "sed", records[0].Comm)
}

func TestParseRecordsDropsBlocksWithoutSyscall(t *testing.T) {
	noSyscall := `----
type=PATH msg=audit(1.0:1): item=0 name="a.txt"
type=CWD msg=audit(1.0:1): cwd="/srv/watched"
`
	assert.Empty(t, ParseRecords([]byte(noSyscall), "a.txt"))
}

func TestExecSourceQueryParsesOutput(t *testing.T) {
	var gotArgs []string
	src := NewExecSource("vigil", time.Second)
	src.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		assert.Equal(t, "ausearch", name)
		gotArgs = args
		return []byte(sampleOutput), nil
	}

	end := time.Date(2026, 3, 1, 14, 3, 10, 0, time.Local)
	records, err := src.Query(context.Background(), "/srv/watched/a.txt", end.Add(-10*time.Second), end)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	assert.Equal(t, []string{
		"-k", "vigil",
		"-ts", "03/01/2026", "14:03:00",
		"-te", "03/01/2026", "14:03:10",
	}, gotArgs)
}

func TestExecSourceQueryErrorYieldsEmpty(t *testing.T) {
	src := NewExecSource("vigil", time.Second)
	src.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, errors.New("ausearch: no matches")
	}

	records, err := src.Query(context.Background(), "/srv/watched/a.txt", time.Now(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestExecRulesInstallRemovesThenAdds(t *testing.T) {
	var calls [][]string
	rules := NewExecRules("vigil", time.Second)
	rules.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		assert.Equal(t, "auditctl", name)
		calls = append(calls, args)
		return nil, nil
	}

	require.NoError(t, rules.Install(context.Background(), "/srv/watched"))
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"-W", "/srv/watched", "-p", "wa", "-k", "vigil"}, calls[0])
	assert.Equal(t, []string{"-w", "/srv/watched", "-p", "wa", "-k", "vigil"}, calls[1])
}

func TestExecRulesInstallToleratesFailedRemoval(t *testing.T) {
	call := 0
	rules := NewExecRules("vigil", time.Second)
	rules.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		call++
		if call == 1 {
			return nil, errors.New("no rule")
		}
		return nil, nil
	}

	assert.NoError(t, rules.Install(context.Background(), "/srv/watched"))
	assert.Equal(t, 2, call)
}

func TestExecRulesInstallFailsWhenAddFails(t *testing.T) {
	rules := NewExecRules("vigil", time.Second)
	rules.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, errors.New("permission denied")
	}

	assert.Error(t, rules.Install(context.Background(), "/srv/watched"))
}
