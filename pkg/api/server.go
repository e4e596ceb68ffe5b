// Package api provides the REST API server for s2800ctl
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/s28tools/s2800ctl/pkg/headers"
	"github.com/s28tools/s2800ctl/pkg/sampler"
)

// @title s2800ctl API
// @version 1.0
// @description API for editing programs and transferring samples on Akai S2800/S3000 samplers over MIDI
// @host localhost:8080
// @BasePath /api/v1

// Server wires HTTP handlers to one sampler session. Session operations
// are serialized: the device cannot interleave SysEx exchanges.
type Server struct {
	session *sampler.Session
}

// StartServer starts the API server on the specified port, talking to the
// sampler through session.
func StartServer(port int, session *sampler.Session) error {
	srv := &Server{session: session}
	r := gin.Default()

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", srv.healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", srv.healthCheck)
		v1.GET("/ports", srv.listPorts)
		v1.GET("/samples", srv.listSamples)
		v1.POST("/samples", srv.uploadSample)
		v1.DELETE("/samples", srv.deleteAllSamples)
		v1.DELETE("/samples/:index", srv.deleteSample)
		v1.GET("/programs", srv.listPrograms)
		v1.POST("/programs", srv.createProgram)
		v1.DELETE("/programs", srv.deleteAllPrograms)
		v1.DELETE("/programs/:index", srv.deleteProgram)
		v1.GET("/programs/:program/keygroups/:keygroup", srv.getKeygroup)
		v1.PUT("/programs/:program/keygroups/:keygroup/fields/:field", srv.setKeygroupField)
		v1.POST("/play", srv.playNote)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r.Run(fmt.Sprintf(":%d", port))
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// deviceError maps sampler failures to HTTP status codes: a silent device
// is a gateway timeout, a refusing device is a bad gateway.
func deviceError(c *gin.Context, err error) {
	var timeout *sampler.TimeoutError
	var rejected *sampler.DeviceRejectedError
	switch {
	case errors.As(err, &timeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	case errors.As(err, &rejected):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API and the sampler link
// @Tags health
// @Produce json
// @Success 200 {object} map[string]any
// @Router /health [get]
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "s2800ctl",
		"connected": s.session.IsAlive(),
	})
}

// listPorts godoc
// @Summary List MIDI ports
// @Description Returns all available MIDI input and output port names
// @Tags ports
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/ports [get]
func (s *Server) listPorts(c *gin.Context) {
	inputs, outputs := sampler.ListPorts()
	c.JSON(http.StatusOK, gin.H{
		"inputs":  inputs,
		"outputs": outputs,
	})
}

// listSamples godoc
// @Summary List resident samples
// @Description Returns the names of all samples in device memory, in device order
// @Tags samples
// @Produce json
// @Success 200 {object} map[string][]string
// @Failure 504 {object} map[string]string
// @Router /api/v1/samples [get]
func (s *Server) listSamples(c *gin.Context) {
	names, err := s.session.ListSamples()
	if err != nil {
		deviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"samples": names})
}

// uploadSample godoc
// @Summary Upload a sample
// @Description Upload raw signed 16-bit little-endian PCM and stream it to the device via MIDI Sample Dump
// @Tags samples
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Raw 16-bit LE PCM data"
// @Param name query string true "Sample name (12 chars max)"
// @Param rate query int false "Sample rate in Hz (default 44100)"
// @Param pitch query int false "Original pitch as MIDI note (default 60)"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /api/v1/samples [post]
func (s *Server) uploadSample(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer func() { _ = file.Close() }()

	pcm, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing sample name"})
		return
	}
	rate, err := strconv.Atoi(c.DefaultQuery("rate", "44100"))
	if err != nil || rate <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sample rate"})
		return
	}
	pitch, err := strconv.Atoi(c.DefaultQuery("pitch", "60"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid pitch"})
		return
	}

	number, err := s.session.UploadSample(pcm, rate, name, pitch, nil)
	if err != nil {
		deviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sample": number,
		"name":   name,
		"frames": len(pcm) / 2,
	})
}

// deleteSample godoc
// @Summary Delete a sample
// @Description Removes the resident sample at the given index
// @Tags samples
// @Produce json
// @Param index path int true "Sample index"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /api/v1/samples/{index} [delete]
func (s *Server) deleteSample(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sample index"})
		return
	}
	if err := s.session.DeleteSample(index); err != nil {
		deviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": index})
}

// deleteAllSamples godoc
// @Summary Delete all samples
// @Description Removes every resident sample from device memory
// @Tags samples
// @Produce json
// @Success 200 {object} map[string]int
// @Router /api/v1/samples [delete]
func (s *Server) deleteAllSamples(c *gin.Context) {
	n, err := s.session.DeleteAllSamples()
	if err != nil {
		deviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

// listPrograms godoc
// @Summary List resident programs
// @Description Returns the names of all programs in device memory, in device order
// @Tags programs
// @Produce json
// @Success 200 {object} map[string][]string
// @Failure 504 {object} map[string]string
// @Router /api/v1/programs [get]
func (s *Server) listPrograms(c *gin.Context) {
	names, err := s.session.ListPrograms()
	if err != nil {
		deviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"programs": names})
}

// createProgramRequest is the JSON body for program creation.
type createProgramRequest struct {
	Name          string `json:"name" binding:"required"`
	ProgramNumber int    `json:"programNumber"`
	MIDIChannel   *int   `json:"midiChannel"`
	Keygroups     []struct {
		LowNote       int    `json:"lowNote"`
		HighNote      int    `json:"highNote"`
		SampleName    string `json:"sampleName" binding:"required"`
		TuneSemitones int    `json:"tuneSemitones"`
		TuneCents     int    `json:"tuneCents"`
	} `json:"keygroups" binding:"required,min=1"`
}

// createProgram godoc
// @Summary Create a program
// @Description Builds a program with the given keygroups and writes it to the device
// @Tags programs
// @Accept json
// @Produce json
// @Param program body createProgramRequest true "Program definition"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /api/v1/programs [post]
func (s *Server) createProgram(c *gin.Context) {
	var req createProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Omni unless a channel was given.
	channel := 0xFF
	if req.MIDIChannel != nil {
		channel = *req.MIDIChannel
	}

	kgs := make([]sampler.Keygroup, len(req.Keygroups))
	for i, kg := range req.Keygroups {
		kgs[i] = sampler.Keygroup{
			LowNote:       kg.LowNote,
			HighNote:      kg.HighNote,
			SampleName:    kg.SampleName,
			TuneSemitones: kg.TuneSemitones,
			TuneCents:     kg.TuneCents,
		}
	}

	if err := s.session.CreateProgram(req.Name, kgs, channel, req.ProgramNumber); err != nil {
		deviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"program":   req.ProgramNumber,
		"name":      req.Name,
		"keygroups": len(kgs),
	})
}

// deleteProgram godoc
// @Summary Delete a program
// @Description Removes the resident program at the given index
// @Tags programs
// @Produce json
// @Param index path int true "Program index"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /api/v1/programs/{index} [delete]
func (s *Server) deleteProgram(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid program index"})
		return
	}
	if err := s.session.DeleteProgram(index); err != nil {
		deviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": index})
}

// deleteAllPrograms godoc
// @Summary Delete all programs
// @Description Removes every resident program from device memory
// @Tags programs
// @Produce json
// @Success 200 {object} map[string]int
// @Router /api/v1/programs [delete]
func (s *Server) deleteAllPrograms(c *gin.Context) {
	n, err := s.session.DeleteAllPrograms()
	if err != nil {
		deviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

// getKeygroup godoc
// @Summary Read keygroup fields
// @Description Reads the keygroup header once and returns every addressable field value
// @Tags keygroups
// @Produce json
// @Param program path int true "Program number"
// @Param keygroup path int true "Keygroup number"
// @Success 200 {object} map[string]int
// @Failure 400 {object} map[string]string
// @Router /api/v1/programs/{program}/keygroups/{keygroup} [get]
func (s *Server) getKeygroup(c *gin.Context) {
	program, keygroup, ok := keygroupParams(c)
	if !ok {
		return
	}
	fields, err := s.session.ReadKeygroupFields(program, keygroup, headers.KeygroupFields)
	if err != nil {
		deviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, fields)
}

// setKeygroupField godoc
// @Summary Write a keygroup field
// @Description Writes one keygroup field and verifies it by reading back
// @Tags keygroups
// @Accept json
// @Produce json
// @Param program path int true "Program number"
// @Param keygroup path int true "Keygroup number"
// @Param field path string true "Field name, e.g. filter_frequency"
// @Param value body map[string]int true "New value, e.g. {\"value\": 50}"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /api/v1/programs/{program}/keygroups/{keygroup}/fields/{field} [put]
func (s *Server) setKeygroupField(c *gin.Context) {
	program, keygroup, ok := keygroupParams(c)
	if !ok {
		return
	}
	field, found := headers.KeygroupFieldByName(c.Param("field"))
	if !found {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown field %q", c.Param("field"))})
		return
	}

	var body struct {
		Value *int `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := s.session.WriteKeygroupField(program, keygroup, field, *body.Value)
	if err != nil {
		deviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"field":     field.Name,
		"old":       res.Old,
		"new":       res.New,
		"confirmed": res.Confirmed,
	})
}

// playNote godoc
// @Summary Play a note
// @Description Sends note on, holds for the given duration, then note off
// @Tags play
// @Accept json
// @Produce json
// @Param note body map[string]int true "Note parameters"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /api/v1/play [post]
func (s *Server) playNote(c *gin.Context) {
	var body struct {
		Channel    int `json:"channel"`
		Note       int `json:"note" binding:"required"`
		Velocity   int `json:"velocity"`
		DurationMs int `json:"durationMs"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if body.Velocity == 0 {
		body.Velocity = 100
	}
	if body.DurationMs == 0 {
		body.DurationMs = 500
	}

	err := s.session.PlayNote(byte(body.Channel), byte(body.Note), byte(body.Velocity),
		time.Duration(body.DurationMs)*time.Millisecond)
	if err != nil {
		deviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"played": body.Note})
}

func keygroupParams(c *gin.Context) (program, keygroup int, ok bool) {
	program, err := strconv.Atoi(c.Param("program"))
	if err != nil || program < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid program number"})
		return 0, 0, false
	}
	keygroup, err = strconv.Atoi(c.Param("keygroup"))
	if err != nil || keygroup < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid keygroup number"})
		return 0, 0, false
	}
	return program, keygroup, true
}
