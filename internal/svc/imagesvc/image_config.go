package imagesvc

// ImageConfig holds configuration parameters for the image service.
type ImageConfig struct {
	// Sizes lists the bounding box edge lengths (in pixels) every image is stored at.
	// The largest size is the canonical one served by Load.
	Sizes []int `env:"SIZES" default:"200,400,800"`

	// Filter specifies the resampling filter used when shrinking.
	// Valid values are: "lanczos", "catmullrom", "linear", "box", "nearest"
	Filter string `env:"FILTER" default:"lanczos"`

	// Quality is the lossy WebP encoder quality in the range [0, 100].
	Quality float64 `env:"QUALITY" default:"80"`

	// Workers caps concurrently ingested batch items; 0 means one per CPU.
	Workers int `env:"WORKERS" default:"0"`

	// MaxSize is the maximum accepted payload size in bytes.
	// Default is 20MB.
	MaxSize int64 `env:"MAX_SIZE" default:"20971520"`
}
