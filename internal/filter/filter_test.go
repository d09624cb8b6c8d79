package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-cerp/semantic-code-mcp/internal/errors"
)

func TestValidatePattern(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		input string
		want  bool
	}{
		{"empty", "", true},
		{"plain glob", "*.ts", true},
		{"double star glob", "**/*.go", true},
		{"path prefix", "src/auth", true},
		{"sql injection or", "' OR '1'='1", false},
		{"sql injection drop", "'; DROP TABLE--", false},
		{"sql injection union", "' UNION SELECT password FROM users--", false},
		{"too long", string(make([]byte, maxPatternLength+1)), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, ValidatePattern(tc.input))
		})
	}
}

func TestBuild_FilePatternExtension(t *testing.T) {
	t.Parallel()

	pred, err := Build(Options{FilePattern: "*.ts"})
	require.NoError(t, err)
	require.NotNil(t, pred)
	assert.Equal(t, "language = 'typescript'", string(*pred))
}

func TestBuild_FilePatternUnknownExtension(t *testing.T) {
	t.Parallel()

	pred, err := Build(Options{FilePattern: "*.zig"})
	require.NoError(t, err)
	require.NotNil(t, pred)
	assert.Equal(t, "id LIKE '%%_zig'", string(*pred))
}

func TestBuild_PathPrefix(t *testing.T) {
	t.Parallel()

	pred, err := Build(Options{Path: "src/auth"})
	require.NoError(t, err)
	require.NotNil(t, pred)
	assert.Equal(t, "id LIKE 'src_auth%'", string(*pred))
}

func TestBuild_BothConditionsJoinedByAnd(t *testing.T) {
	t.Parallel()

	pred, err := Build(Options{Path: "src_auth", FilePattern: "*.ts"})
	require.NoError(t, err)
	require.NotNil(t, pred)
	assert.Equal(t, "id LIKE 'src_auth%' AND language = 'typescript'", string(*pred))
}

func TestBuild_EmptyOptionsReturnsNoPredicate(t *testing.T) {
	t.Parallel()

	pred, err := Build(Options{})
	require.NoError(t, err)
	assert.Nil(t, pred)
}

func TestBuild_InjectionPayloadsRejected(t *testing.T) {
	t.Parallel()

	payloads := []string{
		"' OR '1'='1",
		"'; DROP TABLE--",
		"' UNION SELECT * FROM records--",
		"*.ts'; DROP TABLE--",
	}

	for _, p := range payloads {
		t.Run(p, func(t *testing.T) {
			t.Parallel()

			_, err := Build(Options{Path: p})
			require.Error(t, err)
			assert.Equal(t, errors.KindInvalidFilter, errors.KindOf(err))
			assert.True(t, errors.IsFatal(err))

			_, err = Build(Options{FilePattern: p})
			require.Error(t, err)
			assert.Equal(t, errors.KindInvalidFilter, errors.KindOf(err))
		})
	}
}

func TestBuild_GenericGlobTranslation(t *testing.T) {
	t.Parallel()

	pred, err := Build(Options{FilePattern: "**/internal/**"})
	require.NoError(t, err)
	require.NotNil(t, pred)
	assert.Equal(t, "id LIKE '%%_internal_%'", string(*pred))
}

func TestPredicateMatches_PathPrefix(t *testing.T) {
	t.Parallel()

	pred, err := Build(Options{Path: "src/auth"})
	require.NoError(t, err)
	require.NotNil(t, pred)

	assert.True(t, pred.Matches("src_auth_login_go_L10", "go"))
	assert.False(t, pred.Matches("src_billing_invoice_go_L5", "go"))
}

func TestPredicateMatches_ExtensionLanguageEquality(t *testing.T) {
	t.Parallel()

	pred, err := Build(Options{FilePattern: "*.ts"})
	require.NoError(t, err)
	require.NotNil(t, pred)

	assert.True(t, pred.Matches("anything_at_all", "typescript"))
	assert.False(t, pred.Matches("anything_at_all", "python"))
}

func TestPredicateMatches_GenericGlobSuffix(t *testing.T) {
	t.Parallel()

	pred, err := Build(Options{FilePattern: "**/internal/**"})
	require.NoError(t, err)
	require.NotNil(t, pred)

	assert.True(t, pred.Matches("src_internal_store_types_go_L1", "go"))
	assert.False(t, pred.Matches("src_cmd_main_go_L1", "go"))
}

func TestPredicateMatches_CombinedPathAndLanguage(t *testing.T) {
	t.Parallel()

	pred, err := Build(Options{Path: "src/auth", FilePattern: "*.go"})
	require.NoError(t, err)
	require.NotNil(t, pred)

	assert.True(t, pred.Matches("src_auth_login_go_L10", "go"))
	assert.False(t, pred.Matches("src_auth_login_go_L10", "python"))
	assert.False(t, pred.Matches("src_billing_invoice_go_L5", "go"))
}

func TestPredicateMatches_EmptyPredicateMatchesEverything(t *testing.T) {
	t.Parallel()

	var pred Predicate
	assert.True(t, pred.Matches("anything", "anything"))
}
