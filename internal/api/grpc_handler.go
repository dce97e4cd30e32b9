package api

import (
	"context"
	"errors"
	"log"
	"math"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"storefront-service/internal/catalog"
	"storefront-service/internal/domain"
	"storefront-service/internal/store"
)

const catalogServiceName = "storefront.v1.Catalog"

// CatalogServer is the read-only catalog API served over gRPC. Requests and
// responses are google.protobuf.Struct messages.
type CatalogServer interface {
	ResolveProduct(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LatestProducts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Sidebar(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ProductSpecification(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type catalogMethod func(CatalogServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call catalogMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CatalogServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + catalogServiceName + "/" + name}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(CatalogServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var catalogServiceDesc = grpc.ServiceDesc{
	ServiceName: catalogServiceName,
	HandlerType: (*CatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("ResolveProduct", CatalogServer.ResolveProduct),
		unaryHandler("LatestProducts", CatalogServer.LatestProducts),
		unaryHandler("Sidebar", CatalogServer.Sidebar),
		unaryHandler("ProductSpecification", CatalogServer.ProductSpecification),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storefront/v1/catalog.proto",
}

// RegisterCatalogServer registers srv on s.
func RegisterCatalogServer(s grpc.ServiceRegistrar, srv CatalogServer) {
	s.RegisterService(&catalogServiceDesc, srv)
}

// GRPCHandler implements CatalogServer.
type GRPCHandler struct {
	registry    *catalog.Registry
	resolver    *catalog.Resolver
	latest      *catalog.LatestSelector
	sidebar     *catalog.Sidebar
	latestLimit int
	prioritize  domain.TypeTag
	logger      *log.Logger
}

// NewGRPCHandler creates a new GRPCHandler.
func NewGRPCHandler(s Services) *GRPCHandler {
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}
	sidebar := s.Sidebar
	if sidebar == nil {
		sidebar = catalog.NewSidebar(s.Registry, s.Categories, s.Products, nil, logger)
	}
	return &GRPCHandler{
		registry:    s.Registry,
		resolver:    catalog.NewResolver(s.Registry, s.Products),
		latest:      catalog.NewLatestSelector(s.Registry, s.Products),
		sidebar:     sidebar,
		latestLimit: s.LatestLimit,
		prioritize:  s.Prioritize,
		logger:      logger,
	}
}

// --- Helper: Error Mapping ---
func (s *GRPCHandler) mapErrorToGrpcStatus(err error, method string) error {
	switch {
	case errors.Is(err, catalog.ErrUnknownType):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, store.ErrProductNotFound), errors.Is(err, store.ErrCategoryNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		s.logger.Printf("ERROR: gRPC %s failed: %v", method, err)
		return status.Errorf(codes.Internal, "failed to process %s", method)
	}
}

func (s *GRPCHandler) ResolveProduct(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	tag, err := s.typeField(req)
	if err != nil {
		return nil, err
	}
	id, err := positiveIntField(req, "id")
	if err != nil {
		return nil, err
	}

	p, err := s.resolver.Resolve(ctx, domain.ProductRef{Type: tag, ID: id})
	if err != nil {
		return nil, s.mapErrorToGrpcStatus(err, "ResolveProduct")
	}
	return newStruct(map[string]interface{}{"product": productFields(p)})
}

func (s *GRPCHandler) LatestProducts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()

	tags := s.registry.ConcreteTypes()
	if list := fields["types"].GetListValue(); list != nil && len(list.GetValues()) > 0 {
		tags = tags[:0]
		for _, v := range list.GetValues() {
			tag, err := s.registry.ParseType(v.GetStringValue())
			if err != nil {
				return nil, status.Error(codes.InvalidArgument, err.Error())
			}
			tags = append(tags, tag)
		}
	}

	limit := s.latestLimit
	if _, ok := fields["limit"]; ok {
		n, err := positiveIntField(req, "limit")
		if err != nil {
			return nil, err
		}
		if n > maxLatestLimit {
			return nil, status.Errorf(codes.InvalidArgument, "limit must be between 1 and %d", maxLatestLimit)
		}
		limit = int(n)
	}

	var prioritize *domain.TypeTag
	if s.prioritize != "" {
		p := s.prioritize
		prioritize = &p
	}
	if v, ok := fields["prioritize"]; ok {
		prioritize = prioritizeParam(v.GetStringValue())
	}

	products, err := s.latest.Latest(ctx, tags, limit, prioritize)
	if err != nil {
		return nil, s.mapErrorToGrpcStatus(err, "LatestProducts")
	}
	list := make([]interface{}, 0, len(products))
	for _, p := range products {
		list = append(list, productFields(p))
	}
	return newStruct(map[string]interface{}{"products": list})
}

func (s *GRPCHandler) Sidebar(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	entries, err := s.sidebar.Entries(ctx)
	if err != nil {
		return nil, s.mapErrorToGrpcStatus(err, "Sidebar")
	}
	list := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		list = append(list, map[string]interface{}{"name": e.Name, "url": e.URL, "count": e.Count})
	}
	return newStruct(map[string]interface{}{"entries": list})
}

func (s *GRPCHandler) ProductSpecification(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	tag, err := s.typeField(req)
	if err != nil {
		return nil, err
	}
	slug := req.GetFields()["slug"].GetStringValue()
	if slug == "" {
		return nil, status.Error(codes.InvalidArgument, "slug is required")
	}

	p, err := s.resolver.ResolveSlug(ctx, tag, slug)
	if err != nil {
		return nil, s.mapErrorToGrpcStatus(err, "ProductSpecification")
	}
	rows, err := s.registry.RenderTable(p, catalog.YesNo)
	if err != nil {
		return nil, s.mapErrorToGrpcStatus(err, "ProductSpecification")
	}
	table := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		table = append(table, map[string]interface{}{"label": row.Label, "value": row.Value})
	}
	return newStruct(map[string]interface{}{"product": productFields(p), "specification": table})
}

// --- Helper: Struct conversion ---

func (s *GRPCHandler) typeField(req *structpb.Struct) (domain.TypeTag, error) {
	tag, err := s.registry.ParseType(req.GetFields()["type"].GetStringValue())
	if err != nil {
		return "", status.Error(codes.InvalidArgument, err.Error())
	}
	return tag, nil
}

func positiveIntField(req *structpb.Struct, key string) (int64, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "%s is required", key)
	}
	n, isNumber := v.GetKind().(*structpb.Value_NumberValue)
	if !isNumber || n.NumberValue < 1 || n.NumberValue != math.Trunc(n.NumberValue) || n.NumberValue > 1<<53 {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a positive integer", key)
	}
	return int64(n.NumberValue), nil
}

func productFields(p domain.Product) map[string]interface{} {
	core := p.Core()
	fields := map[string]interface{}{
		"type":        string(p.Type()),
		"id":          core.ID,
		"category_id": core.CategoryID,
		"title":       core.Title,
		"slug":        core.Slug,
		"image":       core.Image,
		"price":       core.Price.String(),
		"url":         catalog.ProductURL(p),
	}
	if core.Description != nil {
		fields["description"] = *core.Description
	}
	return fields
}

func newStruct(m map[string]interface{}) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}
