package ai

import (
	"context"
	"fmt"
	"sync"

	"github.com/sugarme/tokenizer"
	ort "github.com/yalue/onnxruntime_go"
)

type ONNXEmbedderConfig struct {
	Model         string
	ModelPath     string
	TokenizerPath string
	LibPath       string
	MaxSeqLength  int
	Dimension     int
}

// ONNXEmbedder runs a sentence-transformers model exported to ONNX (for
// example all-MiniLM-L6-v2) in process. The runtime, tokenizer and session
// are loaded on first use; inference is serialized.
type ONNXEmbedder struct {
	mu  sync.Mutex
	cfg ONNXEmbedderConfig

	tk         *tokenizer.Tokenizer
	session    *ort.DynamicAdvancedSession
	inputNames []string
	outputName string
	pooled     bool
	inited     bool
}

func NewONNXEmbedder(cfg ONNXEmbedderConfig) *ONNXEmbedder {
	if cfg.MaxSeqLength <= 0 {
		cfg.MaxSeqLength = 256
	}
	return &ONNXEmbedder{cfg: cfg}
}

func (e *ONNXEmbedder) Model() string  { return e.cfg.Model }
func (e *ONNXEmbedder) Dimension() int { return e.cfg.Dimension }

// initLocked must be called with e.mu held.
func (e *ONNXEmbedder) initLocked() error {
	if e.inited {
		return nil
	}

	tk, err := loadTokenizer(e.cfg.TokenizerPath, e.cfg.MaxSeqLength)
	if err != nil {
		return err
	}

	if !ort.IsInitialized() {
		if e.cfg.LibPath != "" {
			ort.SetSharedLibraryPath(e.cfg.LibPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("onnx init environment: %w", err)
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(e.cfg.ModelPath)
	if err != nil {
		return fmt.Errorf("onnx get input/output info: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return fmt.Errorf("onnx model has no inputs or outputs")
	}

	inputNames := make([]string, 0, len(inputs))
	for _, in := range inputs {
		switch in.Name {
		case "input_ids", "attention_mask", "token_type_ids":
			inputNames = append(inputNames, in.Name)
		default:
			return fmt.Errorf("onnx model has unexpected input %q", in.Name)
		}
	}

	output := outputs[0]
	for _, out := range outputs {
		if out.Name == "last_hidden_state" || out.Name == "token_embeddings" {
			output = out
			break
		}
	}
	dims := output.Dimensions
	if len(dims) < 2 {
		return fmt.Errorf("onnx output %q has unexpected shape %v", output.Name, dims)
	}
	if hidden := dims[len(dims)-1]; hidden > 0 && int(hidden) != e.cfg.Dimension {
		return fmt.Errorf("%w: model emits %d, configured %d", ErrDimensionMismatch, hidden, e.cfg.Dimension)
	}

	session, err := ort.NewDynamicAdvancedSession(e.cfg.ModelPath, inputNames, []string{output.Name}, nil)
	if err != nil {
		return fmt.Errorf("onnx new session: %w", err)
	}

	e.tk = tk
	e.session = session
	e.inputNames = inputNames
	e.outputName = output.Name
	e.pooled = len(dims) == 2
	e.inited = true
	return nil
}

func (e *ONNXEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.initLocked(); err != nil {
		return nil, err
	}

	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := e.embedOne(text)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}

func (e *ONNXEmbedder) embedOne(text string) ([]float32, error) {
	enc, err := encodeText(e.tk, text)
	if err != nil {
		return nil, err
	}
	seqLen := int64(len(enc.ids))

	feeds := map[string][]int64{
		"input_ids":      enc.ids,
		"attention_mask": enc.mask,
		"token_type_ids": enc.typeIDs,
	}
	shape := ort.NewShape(1, seqLen)
	inputs := make([]ort.Value, 0, len(e.inputNames))
	defer func() {
		for _, v := range inputs {
			v.Destroy()
		}
	}()
	for _, name := range e.inputNames {
		tensor, err := ort.NewTensor(shape, feeds[name])
		if err != nil {
			return nil, fmt.Errorf("onnx new %s tensor: %w", name, err)
		}
		inputs = append(inputs, tensor)
	}

	dim := int64(e.cfg.Dimension)
	outShape := ort.NewShape(1, seqLen, dim)
	if e.pooled {
		outShape = ort.NewShape(1, dim)
	}
	output, err := ort.NewEmptyTensor[float32](outShape)
	if err != nil {
		return nil, fmt.Errorf("onnx new output tensor: %w", err)
	}
	defer output.Destroy()

	if err := e.session.Run(inputs, []ort.Value{output}); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}

	data := output.GetData()
	var vec []float32
	if e.pooled {
		vec = append([]float32(nil), data...)
	} else {
		vec = meanPool(data, enc.mask, e.cfg.Dimension)
	}
	return normalize(vec), nil
}

func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		err := e.session.Destroy()
		e.session = nil
		e.inited = false
		return err
	}
	return nil
}
