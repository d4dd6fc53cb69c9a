package handlers

import (
	"time"

	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/assets"
	"github.com/OliverZhaohaibin/iPhotron-LocalPhotoAlbumManager-sub001/internal/startup"
)

// maxPageSize caps the limit a client may request.
const maxPageSize = 1000

type Handlers struct {
	repo      *assets.Repository
	pageSize  int
	startTime time.Time
}

func New(repo *assets.Repository, config *startup.Config) *Handlers {
	pageSize := assets.DefaultPageSize
	if config != nil && config.PageSize > 0 {
		pageSize = config.PageSize
	}
	return &Handlers{
		repo:      repo,
		pageSize:  pageSize,
		startTime: time.Now(),
	}
}
