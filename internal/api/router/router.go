package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/pdf-processor/internal/api/handlers/pdf"
	"github.com/aliskhannn/pdf-processor/internal/middleware"
)

func Setup(h *pdf.Handler) *ginext.Engine {
	r := ginext.New()

	r.Use(middleware.CORSMiddleware())
	r.Use(ginext.Logger())
	r.Use(ginext.Recovery())

	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	r.POST("/compress", h.Compress)
	r.POST("/merge", h.Merge)
	r.POST("/extract-pages", h.ExtractPages)
	r.POST("/split", h.ExtractPages)
	r.POST("/rotate-pages", h.Rotate)
	r.POST("/rotate", h.Rotate)
	r.POST("/reorder-pages", h.Reorder)
	r.POST("/watermark-text", h.WatermarkText)
	r.POST("/watermark-image", h.WatermarkImage)
	r.POST("/protect", h.Protect)
	r.POST("/unlock", h.Unlock)
	r.POST("/metadata", h.MetadataWrite)
	r.POST("/metadata-read", h.MetadataRead)
	r.POST("/metadata-write", h.MetadataWrite)
	r.POST("/info", h.Info)
	r.POST("/extract-text", h.ExtractText)
	r.POST("/pdf-to-base64", h.PDFToBase64)
	r.POST("/base64-to-pdf", h.Base64ToPDF)

	return r
}
