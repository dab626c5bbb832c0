package backend

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"nepsum/internal/config"
	"nepsum/internal/domain/entity"
	"nepsum/internal/usecase/summarize"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type generatorServer interface {
	Generate(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var generatorServiceDesc = grpc.ServiceDesc{
	ServiceName: GeneratorService,
	HandlerType: (*generatorServer)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "Generate",
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
			in := &structpb.Struct{}
			if err := dec(in); err != nil {
				return nil, err
			}
			return srv.(generatorServer).Generate(ctx, in)
		},
	}},
	Streams: []grpc.StreamDesc{},
}

type fakeGenerator struct {
	lastReq  *structpb.Struct
	lastAuth []string
	reply    string
	err      error
}

func (f *fakeGenerator) Generate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f.lastReq = req
	md, _ := metadata.FromIncomingContext(ctx)
	f.lastAuth = md.Get("authorization")
	if f.err != nil {
		return nil, f.err
	}
	return structpb.NewStruct(map[string]interface{}{"summary_text": f.reply})
}

func startGenerator(t *testing.T, gen *fakeGenerator, servingStatus healthpb.HealthCheckResponse_ServingStatus) *GRPCBackend {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	srv.RegisterService(&generatorServiceDesc, gen)
	hs := health.NewServer()
	hs.SetServingStatus(GeneratorService, servingStatus)
	healthpb.RegisterHealthServer(srv, hs)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	cfg := config.BackendConfig{
		Transport:   config.TransportGRPC,
		Endpoint:    "passthrough:///bufnet",
		Token:       "secret",
		Model:       "mbart",
		Timeout:     5 * time.Second,
		InputPrefix: "",
	}
	b, err := NewGRPCBackend(entity.ModelB, cfg, grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestGRPCBackend_Generate(t *testing.T) {
	gen := &fakeGenerator{reply: " छोटो सारांश। "}
	b := startGenerator(t, gen, healthpb.HealthCheckResponse_SERVING)

	summary, err := b.Generate(context.Background(), "लामो समाचार", summarize.LongParams())

	require.NoError(t, err)
	assert.Equal(t, "छोटो सारांश।", summary)
	assert.Equal(t, []string{"Bearer secret"}, gen.lastAuth)

	fields := gen.lastReq.GetFields()
	assert.Equal(t, "लामो समाचार", fields["inputs"].GetStringValue())
	assert.Equal(t, "mbart", fields["model"].GetStringValue())
	p := fields["parameters"].GetStructValue().GetFields()
	assert.Equal(t, float64(4), p["num_beams"].GetNumberValue())
	assert.Equal(t, float64(1024), p["max_input_length"].GetNumberValue())
	assert.Equal(t, 0.1, p["length_penalty"].GetNumberValue())
	assert.True(t, p["early_stopping"].GetBoolValue())
}

func TestGRPCBackend_Generate_Errors(t *testing.T) {
	tests := []struct {
		name        string
		gen         *fakeGenerator
		unavailable bool
		deadline    bool
	}{
		{name: "unavailable", gen: &fakeGenerator{err: status.Error(codes.Unavailable, "loading")}, unavailable: true},
		{name: "exhausted", gen: &fakeGenerator{err: status.Error(codes.ResourceExhausted, "oom")}, unavailable: true},
		{name: "deadline", gen: &fakeGenerator{err: status.Error(codes.DeadlineExceeded, "slow")}, deadline: true},
		{name: "internal", gen: &fakeGenerator{err: status.Error(codes.Internal, "boom")}},
		{name: "empty summary", gen: &fakeGenerator{reply: "  "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := startGenerator(t, tt.gen, healthpb.HealthCheckResponse_SERVING)

			_, err := b.Generate(context.Background(), "x", summarize.ShortParams())

			require.Error(t, err)
			assert.Equal(t, tt.unavailable, errors.Is(err, entity.ErrBackendUnavailable))
			assert.Equal(t, tt.deadline, errors.Is(err, context.DeadlineExceeded))
		})
	}
}

func TestGRPCBackend_Health(t *testing.T) {
	serving := startGenerator(t, &fakeGenerator{}, healthpb.HealthCheckResponse_SERVING)
	assert.NoError(t, serving.Health(context.Background()))

	notServing := startGenerator(t, &fakeGenerator{}, healthpb.HealthCheckResponse_NOT_SERVING)
	assert.ErrorIs(t, notServing.Health(context.Background()), entity.ErrBackendUnavailable)
}

func TestNew_Transports(t *testing.T) {
	httpClient, err := New(entity.ModelA, config.BackendConfig{Transport: config.TransportHTTP, Endpoint: "http://mt5:8080"})
	require.NoError(t, err)
	assert.IsType(t, &HTTPBackend{}, httpClient)

	grpcClient, err := New(entity.ModelB, config.BackendConfig{Transport: config.TransportGRPC, Endpoint: "mbart:50051"})
	require.NoError(t, err)
	assert.IsType(t, &GRPCBackend{}, grpcClient)
	assert.NoError(t, grpcClient.Close())

	_, err = New(entity.ModelA, config.BackendConfig{Transport: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestSpec(t *testing.T) {
	cfg := config.BackendConfig{
		MaxConcurrency: 2,
		Short:          config.GenerationConfig{MaxLength: 512, NumBeams: 5, LengthPenalty: 0.1, EarlyStopping: true, InputMaxLength: 512},
		Long:           config.GenerationConfig{MaxLength: 512, NumBeams: 4, LengthPenalty: 0.1, EarlyStopping: true, InputMaxLength: 1024},
	}
	client := NewHTTPBackend(entity.ModelA, cfg, nil)

	spec := Spec(client, cfg)

	assert.Same(t, client, spec.Backend)
	assert.Equal(t, summarize.ShortParams(), spec.Short)
	assert.Equal(t, summarize.LongParams(), spec.Long)
	assert.Equal(t, int64(2), spec.MaxConcurrency)
}
