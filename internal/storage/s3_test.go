package storage

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Service_RequiresBucket(t *testing.T) {
	_, err := NewS3Service(nil, "", "x")
	assert.Error(t, err)
}

func TestS3Service_KeyPrefix(t *testing.T) {
	s := &S3Service{bucket: "b", prefix: "dbdrive"}
	assert.Equal(t, "dbdrive/1/a", s.objectKey("1/a"))
	assert.Equal(t, "1/a", s.trimPrefix("dbdrive/1/a"))

	bare := &S3Service{bucket: "b"}
	assert.Equal(t, "1/a", bare.objectKey("1/a"))
	assert.Equal(t, "1/a", bare.trimPrefix("1/a"))
}

func TestIsMissing(t *testing.T) {
	assert.True(t, isMissing(fmt.Errorf("wrapped: %w", &types.NoSuchKey{})))
	assert.True(t, isMissing(&types.NotFound{}))
	assert.True(t, isMissing(&smithy.GenericAPIError{Code: "NotFound"}))
	assert.False(t, isMissing(&smithy.GenericAPIError{Code: "AccessDenied"}))
	assert.False(t, isMissing(errors.New("timeout")))
}

func TestCountingReader(t *testing.T) {
	c := &countingReader{r: strings.NewReader("abcdef")}
	data, err := io.ReadAll(c)
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(data))
	assert.Equal(t, int64(6), c.n)
}
