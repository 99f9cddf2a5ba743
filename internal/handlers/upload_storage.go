package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	uploadURLPrefix = "uploads"
	maxImageSize    = 5 << 20
)

var (
	errImageExtension = errors.New("image file extension is required")
	errImageTooLarge  = errors.New("image file too large (max 5MB)")
	errImageType      = errors.New("unsupported image type")
	errForeignUpload  = errors.New("path is not an upload")
)

var allowedImageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
}

// ImageStore keeps product images on local disk. Root is served at /uploads, so a
// saved image is referenced as uploads/products/<file>.
type ImageStore struct {
	root string
	log  *logrus.Entry
}

func NewImageStore(root string) *ImageStore {
	return &ImageStore{
		root: filepath.Clean(root),
		log:  logrus.WithField("component", "upload"),
	}
}

func (s *ImageStore) Save(file *multipart.FileHeader) (string, error) {
	extension := strings.ToLower(filepath.Ext(file.Filename))
	if extension == "" {
		return "", errImageExtension
	}
	if _, ok := allowedImageExtensions[extension]; !ok {
		return "", fmt.Errorf("%w: %s", errImageType, extension)
	}
	if file.Size > maxImageSize {
		return "", errImageTooLarge
	}

	filename := primitive.NewObjectID().Hex() + extension

	dir := filepath.Join(s.root, "products")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	fullPath := filepath.Join(dir, filename)
	out, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	defer out.Close()

	in, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer in.Close()

	if _, err := io.Copy(out, in); err != nil {
		_ = os.Remove(fullPath)
		return "", fmt.Errorf("write image file: %w", err)
	}

	s.log.WithFields(logrus.Fields{"file": filename, "size": file.Size}).Info("image saved")
	return path.Join(uploadURLPrefix, "products", filename), nil
}

func isImageRejection(err error) bool {
	return errors.Is(err, errImageExtension) || errors.Is(err, errImageTooLarge) || errors.Is(err, errImageType)
}

// Delete removes a previously saved image. Paths outside the upload root, such as
// external image URLs, yield errForeignUpload and are left alone.
func (s *ImageStore) Delete(relPath string) error {
	trimmed := strings.TrimSpace(relPath)
	if trimmed == "" {
		return nil
	}

	cleanRel := path.Clean("/" + strings.TrimPrefix(trimmed, "/"))
	cleanRel = strings.TrimPrefix(cleanRel, "/")

	if !strings.HasPrefix(cleanRel, uploadURLPrefix+"/") {
		return errForeignUpload
	}
	cleanRel = strings.TrimPrefix(cleanRel, uploadURLPrefix+"/")

	target := filepath.Clean(filepath.Join(s.root, filepath.FromSlash(cleanRel)))
	if target == s.root || !strings.HasPrefix(target, s.root+string(os.PathSeparator)) {
		return fmt.Errorf("refusing to delete path outside upload root: %s", relPath)
	}

	if err := os.Remove(target); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return nil
}
