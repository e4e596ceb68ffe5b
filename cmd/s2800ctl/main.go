// Package main is the entry point for the s2800ctl CLI
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"github.com/s28tools/s2800ctl/pkg/api"
	"github.com/s28tools/s2800ctl/pkg/config"
	"github.com/s28tools/s2800ctl/pkg/headers"
	"github.com/s28tools/s2800ctl/pkg/sampler"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	inPortFlag  string
	outPortFlag string
	channelFlag int
	sdsFlag     int
	verbose     bool
	serverPort  int

	sampleRate    int
	samplePitch   int
	lowNote       int
	highNote      int
	programNumber int
	midiChannel   int
	playChannel   int
	velocity      int
	holdMs        int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "s2800ctl",
	Short: "Control Akai S2800/S3000 samplers over MIDI SysEx",
	Long: `s2800ctl edits programs and transfers samples on Akai S1000-family
samplers (S2800, S3000, S3200) over MIDI.

Examples:
  s2800ctl ports
  s2800ctl samples
  s2800ctl upload kick.pcm --name KICK --rate 44100
  s2800ctl create-program DRUMS KICK --low 36 --high 47
  s2800ctl kg-get 0 0
  s2800ctl kg-set 0 0 filter_frequency 50
  s2800ctl serve --port 8080`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List available MIDI ports",
	RunE:  runPorts,
}

var samplesCmd = &cobra.Command{
	Use:   "samples",
	Short: "List resident samples",
	RunE:  runSamples,
}

var programsCmd = &cobra.Command{
	Use:   "programs",
	Short: "List resident programs",
	RunE:  runPrograms,
}

var deleteSampleCmd = &cobra.Command{
	Use:   "delete-sample <index>",
	Short: "Delete the sample at an index",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteSample,
}

var deleteProgramCmd = &cobra.Command{
	Use:   "delete-program <index>",
	Short: "Delete the program at an index",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteProgram,
}

var wipeSamplesCmd = &cobra.Command{
	Use:   "wipe-samples",
	Short: "Delete every resident sample",
	RunE:  runWipeSamples,
}

var wipeProgramsCmd = &cobra.Command{
	Use:   "wipe-programs",
	Short: "Delete every resident program",
	RunE:  runWipePrograms,
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file.pcm>",
	Short: "Upload raw 16-bit LE PCM as a new sample",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpload,
}

var createProgramCmd = &cobra.Command{
	Use:   "create-program <name> <sample>",
	Short: "Create a one-keygroup program playing a resident sample",
	Args:  cobra.ExactArgs(2),
	RunE:  runCreateProgram,
}

var kgGetCmd = &cobra.Command{
	Use:   "kg-get <program> <keygroup>",
	Short: "Read every keygroup field",
	Args:  cobra.ExactArgs(2),
	RunE:  runKgGet,
}

var kgSetCmd = &cobra.Command{
	Use:   "kg-set <program> <keygroup> <field> <value>",
	Short: "Write one keygroup field and verify it",
	Args:  cobra.ExactArgs(4),
	RunE:  runKgSet,
}

var playCmd = &cobra.Command{
	Use:   "play <note>",
	Short: "Play a MIDI note through the sampler",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlay,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&inPortFlag, "in", "", "MIDI input port name (default: auto-detect)")
	rootCmd.PersistentFlags().StringVar(&outPortFlag, "out", "", "MIDI output port name (default: auto-detect)")
	rootCmd.PersistentFlags().IntVar(&channelFlag, "channel", -1, "SysEx exclusive channel 0-15 (default: from config)")
	rootCmd.PersistentFlags().IntVar(&sdsFlag, "sds-channel", -1, "Sample dump channel 0-15 (default: from config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log SysEx traffic")

	// upload command
	uploadCmd.Flags().IntVar(&sampleRate, "rate", 44100, "Sample rate in Hz")
	uploadCmd.Flags().IntVar(&samplePitch, "pitch", 60, "Original pitch as MIDI note")
	uploadCmd.Flags().String("name", "", "Sample name, 12 chars max (default: file name)")

	// create-program command
	createProgramCmd.Flags().IntVar(&lowNote, "low", 21, "Low note of the keygroup")
	createProgramCmd.Flags().IntVar(&highNote, "high", 127, "High note of the keygroup")
	createProgramCmd.Flags().IntVar(&programNumber, "program", 0, "Program number")
	createProgramCmd.Flags().IntVar(&midiChannel, "midi-channel", -1, "Program MIDI channel (default: omni)")

	// play command
	playCmd.Flags().IntVar(&playChannel, "midi-channel", 0, "MIDI channel to play on")
	playCmd.Flags().IntVar(&velocity, "velocity", 100, "Note velocity")
	playCmd.Flags().IntVar(&holdMs, "hold", 500, "Hold time in milliseconds")

	// serve command
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "Server port")

	// Add commands
	rootCmd.AddCommand(portsCmd)
	rootCmd.AddCommand(samplesCmd)
	rootCmd.AddCommand(programsCmd)
	rootCmd.AddCommand(deleteSampleCmd)
	rootCmd.AddCommand(deleteProgramCmd)
	rootCmd.AddCommand(wipeSamplesCmd)
	rootCmd.AddCommand(wipeProgramsCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(createProgramCmd)
	rootCmd.AddCommand(kgGetCmd)
	rootCmd.AddCommand(kgSetCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(serveCmd)
}

// newSession builds a session from the saved config with flag overrides on
// top. Ports left empty are auto-detected on first use.
func newSession() (*sampler.Session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	in, out := cfg.InPort, cfg.OutPort
	if inPortFlag != "" {
		in = inPortFlag
	}
	if outPortFlag != "" {
		out = outPortFlag
	}
	channel := cfg.ExclusiveChannel
	if channelFlag >= 0 {
		channel = channelFlag
	}
	sds := cfg.SDSChannel
	if sdsFlag >= 0 {
		sds = sdsFlag
	}

	opts := []sampler.Option{
		sampler.WithPorts(in, out),
		sampler.WithChannel(byte(channel)),
		sampler.WithSDSChannel(byte(sds)),
	}
	if cfg.ReplyTimeoutMillis > 0 {
		opts = append(opts, sampler.WithReplyTimeout(time.Duration(cfg.ReplyTimeoutMillis)*time.Millisecond))
	}
	if verbose {
		opts = append(opts, sampler.WithLogger(stdLogger{}))
	}
	return sampler.NewSession(opts...), nil
}

// stdLogger adapts the standard library logger to the sampler's Logger.
type stdLogger struct{}

func (stdLogger) Debug(msg string, kv ...any) { logPairs("DEBUG", msg, kv) }
func (stdLogger) Info(msg string, kv ...any)  { logPairs("INFO", msg, kv) }
func (stdLogger) Error(msg string, kv ...any) { logPairs("ERROR", msg, kv) }

func logPairs(level, msg string, kv []any) {
	out := level + " " + msg
	for i := 0; i+1 < len(kv); i += 2 {
		out += fmt.Sprintf(" %v=%v", kv[i], kv[i+1])
	}
	log.Println(out)
}

func runPorts(cmd *cobra.Command, args []string) error {
	inputs, outputs := sampler.ListPorts()
	fmt.Println("Inputs:")
	for _, name := range inputs {
		fmt.Printf("  %s\n", name)
	}
	fmt.Println("Outputs:")
	for _, name := range outputs {
		fmt.Printf("  %s\n", name)
	}

	in, out := sampler.FindPorts()
	if in != "" || out != "" {
		fmt.Printf("Detected sampler: in=%q out=%q\n", in, out)
	}
	return nil
}

func runSamples(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	names, err := s.ListSamples()
	if err != nil {
		return err
	}
	for i, name := range names {
		fmt.Printf("%3d  %s\n", i, name)
	}
	fmt.Printf("%d samples\n", len(names))
	return nil
}

func runPrograms(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	names, err := s.ListPrograms()
	if err != nil {
		return err
	}
	for i, name := range names {
		fmt.Printf("%3d  %s\n", i, name)
	}
	fmt.Printf("%d programs\n", len(names))
	return nil
}

func runDeleteSample(cmd *cobra.Command, args []string) error {
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid index %q", args[0])
	}
	s, err := newSession()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if err := s.DeleteSample(index); err != nil {
		return err
	}
	fmt.Printf("Deleted sample %d\n", index)
	return nil
}

func runDeleteProgram(cmd *cobra.Command, args []string) error {
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid index %q", args[0])
	}
	s, err := newSession()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if err := s.DeleteProgram(index); err != nil {
		return err
	}
	fmt.Printf("Deleted program %d\n", index)
	return nil
}

func runWipeSamples(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	n, err := s.DeleteAllSamples()
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d samples\n", n)
	return nil
}

func runWipePrograms(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	n, err := s.DeleteAllPrograms()
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d programs\n", n)
	return nil
}

func runUpload(cmd *cobra.Command, args []string) error {
	input := args[0]
	pcm, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		name = baseName(input)
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	fmt.Printf("Uploading %s (%d frames at %d Hz)\n", name, len(pcm)/2, sampleRate)
	number, err := s.UploadSample(pcm, sampleRate, name, samplePitch, func(sent, total int) {
		fmt.Printf("\r  packet %d/%d", sent, total)
	})
	fmt.Println()
	if err != nil {
		return err
	}
	fmt.Printf("Uploaded as sample %d\n", number)
	return nil
}

func runCreateProgram(cmd *cobra.Command, args []string) error {
	name, sampleName := args[0], args[1]

	s, err := newSession()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	channel := 0xFF
	if midiChannel >= 0 {
		channel = midiChannel
	}
	kg := sampler.Keygroup{
		LowNote:    lowNote,
		HighNote:   highNote,
		SampleName: sampleName,
	}
	if err := s.CreateProgram(name, []sampler.Keygroup{kg}, channel, programNumber); err != nil {
		return err
	}
	fmt.Printf("Created program %d %q playing %s on notes %d-%d\n",
		programNumber, name, sampleName, lowNote, highNote)
	return nil
}

func runKgGet(cmd *cobra.Command, args []string) error {
	program, keygroup, err := parseProgramKeygroup(args)
	if err != nil {
		return err
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	values, err := s.ReadKeygroupFields(program, keygroup, headers.KeygroupFields)
	if err != nil {
		return err
	}
	for _, f := range headers.KeygroupFields {
		fmt.Printf("%-22s %d\n", f.Name, values[f.Name])
	}
	return nil
}

func runKgSet(cmd *cobra.Command, args []string) error {
	program, keygroup, err := parseProgramKeygroup(args[:2])
	if err != nil {
		return err
	}
	field, ok := headers.KeygroupFieldByName(args[2])
	if !ok {
		return fmt.Errorf("unknown field %q", args[2])
	}
	value, err := strconv.Atoi(args[3])
	if err != nil {
		return fmt.Errorf("invalid value %q", args[3])
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	res, err := s.WriteKeygroupField(program, keygroup, field, value)
	if err != nil {
		return err
	}
	if res.Confirmed {
		fmt.Printf("%s: %d -> %d\n", field.Name, res.Old, res.New)
	} else {
		fmt.Printf("%s: %d -> %d (not verified)\n", field.Name, res.Old, res.New)
	}
	return nil
}

func runPlay(cmd *cobra.Command, args []string) error {
	note, err := strconv.Atoi(args[0])
	if err != nil || note < 0 || note > 127 {
		return fmt.Errorf("invalid note %q", args[0])
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	return s.PlayNote(byte(playChannel), byte(note), byte(velocity),
		time.Duration(holdMs)*time.Millisecond)
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	fmt.Printf("Starting s2800ctl API server on port %d...\n", serverPort)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", serverPort)
	return api.StartServer(serverPort, s)
}

func parseProgramKeygroup(args []string) (program, keygroup int, err error) {
	program, err = strconv.Atoi(args[0])
	if err != nil || program < 0 {
		return 0, 0, fmt.Errorf("invalid program %q", args[0])
	}
	keygroup, err = strconv.Atoi(args[1])
	if err != nil || keygroup < 0 {
		return 0, 0, fmt.Errorf("invalid keygroup %q", args[1])
	}
	return program, keygroup, nil
}

// baseName strips the directory and extension from a path for use as a
// default sample name.
func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
