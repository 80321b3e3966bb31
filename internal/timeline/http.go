package timeline

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the timeline read API under the provided group.
func RegisterRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.GET("/timeline/buckets", handler.listBuckets)
	group.POST("/timeline/buckets/:timestamp/fetch", handler.fetchBucket)
	group.GET("/timeline/buckets/:timestamp/assets", handler.listAssets)
	group.GET("/timeline/assets/:index", handler.resolveByIndex)
	group.GET("/timeline/assets", handler.locateIndex)
	group.GET("/timeline/count", handler.assetCount)
}

type httpHandler struct {
	service *Service
}

func (h *httpHandler) listBuckets(c *gin.Context) {
	views, cancel := h.service.ObserveBuckets()
	defer cancel()

	select {
	case buckets := <-views:
		c.JSON(http.StatusOK, gin.H{"buckets": buckets})
	default:
		c.JSON(http.StatusOK, gin.H{"buckets": []BucketView{}})
	}
}

func (h *httpHandler) fetchBucket(c *gin.Context) {
	bucket, err := strconv.ParseInt(c.Param("timestamp"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bucket timestamp"})
		return
	}
	h.service.EnsureFetched(bucket)
	c.Status(http.StatusAccepted)
}

func (h *httpHandler) listAssets(c *gin.Context) {
	bucket, err := strconv.ParseInt(c.Param("timestamp"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bucket timestamp"})
		return
	}

	items, err := h.service.fetchBlocking(c.Request.Context(), bucket)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "bucket has no assets"})
		case errors.Is(err, ErrSourceUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "asset source unavailable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load assets"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bucket": bucket,
		"state":  h.service.BucketState(bucket),
		"assets": items,
	})
}

func (h *httpHandler) resolveByIndex(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid index"})
		return
	}

	item, err := h.service.ResolveByIndex(c.Request.Context(), index)
	if err != nil {
		switch {
		case errors.Is(err, ErrOutOfRange):
			c.JSON(http.StatusNotFound, gin.H{"error": "index out of range"})
		case errors.Is(err, ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "asset not found"})
		case errors.Is(err, ErrSourceUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "asset source unavailable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve index"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"index":   index,
		"asset":   item,
		"preview": h.service.locator.Preview(item.ID, item.Type),
	})
}

func (h *httpHandler) locateIndex(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id query parameter is required"})
		return
	}

	index, ok := h.service.LocateIndex(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "asset not found in cached buckets"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "index": index})
}

func (h *httpHandler) assetCount(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"count": h.service.AssetCount()})
}
