package avatar

import (
	"bytes"
	"campflow/bizerror"
	"campflow/client/s3"
	"campflow/session"
	"errors"
	"io"
	"io/ioutil"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/fundwit/go-commons/types"
)

// avatars are rendered beside approval history entries, always as png
const avatarSizeLimit = 1 << 20

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

func avatarKey(id types.ID) string {
	return "approver-avatars/" + id.String() + ".png"
}

func DetailAvatar(id types.ID, s *session.Session) ([]byte, error) {
	r, err := s3.GetObjectFunc(avatarKey(id), s)
	if err != nil {
		if serErr, ok := err.(oss.ServiceError); ok && serErr.Code == "NoSuchKey" {
			return nil, bizerror.ErrNotFound
		}
		return nil, err
	}
	return ioutil.ReadAll(r)
}

func CreateAvatar(id types.ID, r io.Reader, s *session.Session) error {
	if id != s.Identity.ID {
		return bizerror.ErrForbidden
	}

	data, err := ioutil.ReadAll(io.LimitReader(r, avatarSizeLimit+1))
	if err != nil {
		return err
	}
	if len(data) > avatarSizeLimit {
		return &bizerror.ErrBadParam{Cause: errors.New("avatar exceeds size limit")}
	}
	if !bytes.HasPrefix(data, pngSignature) {
		return &bizerror.ErrBadParam{Cause: errors.New("avatar must be a png image")}
	}

	return s3.PutObjectFunc(avatarKey(id), bytes.NewReader(data), s)
}
